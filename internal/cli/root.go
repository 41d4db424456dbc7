package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/your-org/moments/internal/moments"
	"github.com/your-org/moments/internal/poaps"
	"github.com/your-org/moments/pkg/compass"
	"github.com/your-org/moments/pkg/config"
	"github.com/your-org/moments/pkg/logger"
	"github.com/your-org/moments/pkg/poapapi"
)

// Creator runs the moment creation workflow.
type Creator interface {
	CreateMoment(ctx context.Context, req moments.CreateMomentRequest) (*moments.Moment, error)
}

// PoapFetcher lists POAPs.
type PoapFetcher interface {
	Fetch(ctx context.Context, input poaps.FetchInput) (poaps.Page[poaps.POAP], error)
}

// DropManager creates and edits drops.
type DropManager interface {
	CreateDrop(ctx context.Context, input poapapi.CreateDropInput) (poapapi.Drop, error)
	UpdateDrop(ctx context.Context, input poapapi.UpdateDropInput) (poapapi.Drop, error)
}

// Deps are the clients commands talk to.
type Deps struct {
	Creator Creator
	Poaps   PoapFetcher
	Drops   DropManager
}

// DepsFunc builds Deps once flags have been parsed.
type DepsFunc func() (*Deps, error)

// NewRootCmd builds the momentsctl command tree. A nil build uses clients
// configured from the environment.
func NewRootCmd(build DepsFunc) *cobra.Command {
	if build == nil {
		build = depsFromEnv
	}

	root := &cobra.Command{
		Use:           "momentsctl",
		Short:         "Create moments, manage drops and browse POAPs",
		Long:          "Command line client for uploading media, creating moments attached to POAP drops and managing the drops themselves",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newCreateCmd(build))
	root.AddCommand(newPoapsCmd(build))
	root.AddCommand(newDropsCmd(build))
	return root
}

// Execute runs the CLI with environment-configured clients.
func Execute(ctx context.Context) error {
	return NewRootCmd(nil).ExecuteContext(ctx)
}

func depsFromEnv() (*Deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logr, err := logger.New(logger.Options{
		Level:    cfg.App.LogLevel,
		Encoding: "console",
		Output:   "stderr",
	})
	if err != nil {
		return nil, err
	}

	api := poapapi.New(poapapi.Config{
		BaseURL: cfg.API.BaseURL,
		APIKey:  cfg.API.APIKey,
		Timeout: cfg.API.Timeout,
	})

	return &Deps{
		Creator: moments.NewOrchestrator(moments.Params{
			Uploader: moments.NewAPIUploader(api),
			Creator:  api,
			Logger:   logr.Named("moments").WithOptions(zap.IncreaseLevel(zap.WarnLevel)),
		}),
		Poaps: poaps.NewClient(compass.New(compass.Config{
			Endpoint: cfg.Compass.Endpoint,
			APIKey:   cfg.Compass.APIKey,
			Timeout:  cfg.Compass.Timeout,
		})),
		Drops: poapapi.NewDropsClient(poapapi.DropsConfig{
			BaseURL: cfg.Drops.BaseURL,
			APIKey:  cfg.Drops.APIKey,
			Timeout: cfg.Drops.Timeout,
		}),
	}, nil
}
