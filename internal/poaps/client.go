package poaps

import (
	"context"
	"fmt"
	"time"

	"github.com/your-org/moments/pkg/compass"
)

const paginatedPoapsQuery = `
  query PaginatedPoaps(
    $limit: Int!
    $offset: Int!
    $orderBy: [poaps_order_by!]
    $where: poaps_bool_exp
  ) {
    poaps(limit: $limit, offset: $offset, order_by: $orderBy, where: $where) {
      chain
      collector_address
      drop_id
      id
      minted_on
      transfer_count
      drop {
        name
        image_url
      }
    }
  }
`

// Querier runs a GraphQL query.
type Querier interface {
	Request(ctx context.Context, query string, variables any, out any) error
}

// POAP is a minted token of a drop.
type POAP struct {
	ID               int64
	Chain            string
	CollectorAddress string
	DropID           int64
	MintedOn         time.Time
	TransferCount    int
	DropName         string
	DropImageURL     string
}

// FetchInput filters and pages a POAP listing.
type FetchInput struct {
	Limit            int
	Offset           int
	Chain            string
	CollectorAddress string
	DropID           int64
	MintedFrom       int64
	MintedTo         int64
	IDs              []int64
	SortField        string
	SortDir          compass.SortDirection
	// KeepZeroAddress includes tokens held by the zero address.
	KeepZeroAddress bool
}

// Page is one page of results plus the offset of the next one, if any.
type Page[T any] struct {
	Items      []T
	NextCursor *int
}

// Client fetches POAPs.
type Client struct {
	querier Querier
}

// NewClient constructs a Client.
func NewClient(q Querier) *Client {
	return &Client{querier: q}
}

type variables struct {
	Limit   int                              `json:"limit"`
	Offset  int                              `json:"offset"`
	OrderBy map[string]compass.SortDirection `json:"orderBy,omitempty"`
	Where   compass.Filter                   `json:"where"`
}

type poapRow struct {
	Chain            string `json:"chain"`
	CollectorAddress string `json:"collector_address"`
	DropID           int64  `json:"drop_id"`
	ID               int64  `json:"id"`
	MintedOn         int64  `json:"minted_on"`
	TransferCount    int    `json:"transfer_count"`
	Drop             struct {
		Name     string `json:"name"`
		ImageURL string `json:"image_url"`
	} `json:"drop"`
}

// Fetch returns a page of POAPs matching input.
func (c *Client) Fetch(ctx context.Context, input FetchInput) (Page[POAP], error) {
	if input.Limit <= 0 {
		return Page[POAP]{}, fmt.Errorf("limit must be positive")
	}

	vars := variables{
		Limit:   input.Limit,
		Offset:  input.Offset,
		OrderBy: compass.Order(input.SortField, input.SortDir),
		Where: compass.Merge(
			compass.NotNullAddress("collector_address", !input.KeepZeroAddress, false),
			compass.Address("collector_address", input.CollectorAddress),
			compass.Eq("chain", input.Chain),
			compass.Eq("drop_id", input.DropID),
			compass.Between("minted_on", input.MintedFrom, input.MintedTo),
			compass.In("id", input.IDs),
		),
	}

	var data struct {
		Poaps []poapRow `json:"poaps"`
	}
	if err := c.querier.Request(ctx, paginatedPoapsQuery, vars, &data); err != nil {
		return Page[POAP]{}, fmt.Errorf("fetch poaps: %w", err)
	}

	items := make([]POAP, 0, len(data.Poaps))
	for _, row := range data.Poaps {
		items = append(items, POAP{
			ID:               row.ID,
			Chain:            row.Chain,
			CollectorAddress: row.CollectorAddress,
			DropID:           row.DropID,
			MintedOn:         time.Unix(row.MintedOn, 0).UTC(),
			TransferCount:    row.TransferCount,
			DropName:         row.Drop.Name,
			DropImageURL:     row.Drop.ImageURL,
		})
	}

	return Page[POAP]{
		Items:      items,
		NextCursor: compass.NextCursor(len(items), input.Limit, input.Offset),
	}, nil
}
