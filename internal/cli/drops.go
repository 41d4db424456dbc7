package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"github.com/your-org/moments/pkg/poapapi"
)

const dateFlagLayout = "2006-01-02"

// dropOptions holds the flags create and update share.
type dropOptions struct {
	name         string
	description  string
	city         string
	country      string
	startDate    string
	endDate      string
	expiryDate   string
	eventURL     string
	virtual      bool
	private      bool
	secretCode   string
	templateID   int64
	email        string
	requestCodes int
}

func (o *dropOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.name, "name", "", "Drop name")
	f.StringVar(&o.description, "description", "", "Drop description")
	f.StringVar(&o.city, "city", "", "City the event takes place in")
	f.StringVar(&o.country, "country", "", "Country the event takes place in")
	f.StringVar(&o.startDate, "start-date", "", "Start date (YYYY-MM-DD)")
	f.StringVar(&o.endDate, "end-date", "", "End date (YYYY-MM-DD)")
	f.StringVar(&o.expiryDate, "expiry-date", "", "Claim expiry date (YYYY-MM-DD)")
	f.StringVar(&o.eventURL, "event-url", "", "Event website")
	f.BoolVar(&o.virtual, "virtual", false, "The event is virtual")
	f.BoolVar(&o.private, "private", false, "Hide the drop from public listings")
	f.StringVar(&o.secretCode, "secret-code", "", "Six digit code required to edit the drop")
	f.Int64Var(&o.templateID, "template-id", 0, "Event template to apply")
	for _, name := range []string{"name", "description", "start-date", "end-date", "expiry-date", "secret-code"} {
		_ = cmd.MarkFlagRequired(name)
	}
}

// dates converts the flag dates to the API layout.
func (o *dropOptions) dates() (start, end, expiry string, err error) {
	parse := func(flag, raw string) (string, error) {
		t, err := time.Parse(dateFlagLayout, raw)
		if err != nil {
			return "", fmt.Errorf("--%s must be YYYY-MM-DD: %w", flag, err)
		}
		return poapapi.FormatDate(t), nil
	}
	if start, err = parse("start-date", o.startDate); err != nil {
		return "", "", "", err
	}
	if end, err = parse("end-date", o.endDate); err != nil {
		return "", "", "", err
	}
	if expiry, err = parse("expiry-date", o.expiryDate); err != nil {
		return "", "", "", err
	}
	return start, end, expiry, nil
}

func newDropsCmd(build DepsFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drops",
		Short: "Create and update POAP drops",
	}
	cmd.AddCommand(newDropsCreateCmd(build))
	cmd.AddCommand(newDropsUpdateCmd(build))
	return cmd
}

func newDropsCreateCmd(build DepsFunc) *cobra.Command {
	opts := &dropOptions{}

	cmd := &cobra.Command{
		Use:   "create [flags] <image>",
		Short: "Create a drop with the given artwork",
		Example: `  momentsctl drops create --name "ETHGlobal" --description "Hackathon" \
    --start-date 2026-10-19 --end-date 2026-10-21 --expiry-date 2026-11-21 \
    --secret-code 123456 --email team@example.com --virtual badge.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, expiry, err := opts.dates()
			if err != nil {
				return err
			}
			image, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}

			input := poapapi.CreateDropInput{
				Name:         opts.name,
				Description:  opts.description,
				City:         opts.city,
				Country:      opts.country,
				StartDate:    start,
				EndDate:      end,
				ExpiryDate:   expiry,
				EventURL:     opts.eventURL,
				VirtualEvent: opts.virtual,
				Image:        image,
				Filename:     filepath.Base(args[0]),
				ContentType:  mimetype.Detect(image).String(),
				SecretCode:   opts.secretCode,
				Email:        opts.email,
			}
			if cmd.Flags().Changed("template-id") {
				input.EventTemplateID = &opts.templateID
			}
			if cmd.Flags().Changed("requested-codes") {
				input.RequestedCodes = &opts.requestCodes
			}
			if cmd.Flags().Changed("private") {
				input.PrivateEvent = &opts.private
			}

			deps, err := build()
			if err != nil {
				return err
			}
			drop, err := deps.Drops.CreateDrop(cmd.Context(), input)
			if err != nil {
				return fmt.Errorf("failed to create drop: %w", err)
			}
			printDrop(cmd.OutOrStdout(), "Drop created:", drop)
			return nil
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringVar(&opts.email, "email", "", "Contact email for the drop")
	cmd.Flags().IntVar(&opts.requestCodes, "requested-codes", 0, "Number of mint codes to request")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newDropsUpdateCmd(build DepsFunc) *cobra.Command {
	opts := &dropOptions{}

	cmd := &cobra.Command{
		Use:   "update [flags]",
		Short: "Update the details of an existing drop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, expiry, err := opts.dates()
			if err != nil {
				return err
			}

			input := poapapi.UpdateDropInput{
				Name:         opts.name,
				Description:  opts.description,
				City:         opts.city,
				Country:      opts.country,
				StartDate:    start,
				EndDate:      end,
				ExpiryDate:   expiry,
				EventURL:     opts.eventURL,
				VirtualEvent: opts.virtual,
				SecretCode:   opts.secretCode,
			}
			if cmd.Flags().Changed("template-id") {
				input.EventTemplateID = &opts.templateID
			}
			if cmd.Flags().Changed("private") {
				input.PrivateEvent = &opts.private
			}

			deps, err := build()
			if err != nil {
				return err
			}
			drop, err := deps.Drops.UpdateDrop(cmd.Context(), input)
			if err != nil {
				return fmt.Errorf("failed to update drop: %w", err)
			}
			printDrop(cmd.OutOrStdout(), "Drop updated:", drop)
			return nil
		},
	}

	opts.bind(cmd)
	return cmd
}

func printDrop(out io.Writer, title string, drop poapapi.Drop) {
	fmt.Fprintln(out, title)
	fmt.Fprintf(out, "ID: %d\n", drop.ID)
	if drop.FancyID != "" {
		fmt.Fprintf(out, "Fancy ID: %s\n", drop.FancyID)
	}
	fmt.Fprintf(out, "Name: %s\n", drop.Name)
	if drop.ImageURL != "" {
		fmt.Fprintf(out, "Image: %s\n", drop.ImageURL)
	}
}
