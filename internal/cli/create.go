package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"github.com/your-org/moments/internal/moments"
)

type createOptions struct {
	dropID      int64
	tokenID     int64
	author      string
	description string
	timeout     time.Duration
}

func newCreateCmd(build DepsFunc) *cobra.Command {
	opts := &createOptions{}

	cmd := &cobra.Command{
		Use:   "create [flags] [file...]",
		Short: "Upload media and create a moment",
		Example: `  momentsctl create --drop-id 420 --author 0x7CE5...de3e photo.png clip.mp4
  momentsctl create --drop-id 420 --token-id 69 --author vitalik.eth --description "gm"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd, build, opts, args)
		},
	}

	cmd.Flags().Int64Var(&opts.dropID, "drop-id", 0, "Drop the moment belongs to")
	cmd.Flags().Int64Var(&opts.tokenID, "token-id", 0, "Token the moment is attached to")
	cmd.Flags().StringVar(&opts.author, "author", "", "Author address")
	cmd.Flags().StringVar(&opts.description, "description", "", "Moment description")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Minute, "Abort the whole run after this long")
	_ = cmd.MarkFlagRequired("drop-id")
	_ = cmd.MarkFlagRequired("author")

	return cmd
}

func runCreate(cmd *cobra.Command, build DepsFunc, opts *createOptions, files []string) error {
	media, err := readMediaFiles(files)
	if err != nil {
		return err
	}

	deps, err := build()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	progress := newProgressPrinter(out)

	req := moments.CreateMomentRequest{
		DropID:      opts.dropID,
		Author:      opts.author,
		Description: opts.description,
		Media:       media,
		OnStep: moments.StepFunc(func(step moments.Step) {
			progress.printf("==> %s\n", step)
		}),
		OnUploadProgress: progress.media,
	}
	if cmd.Flags().Changed("token-id") {
		tokenID := opts.tokenID
		req.TokenID = &tokenID
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	moment, err := deps.Creator.CreateMoment(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to create moment: %w", err)
	}

	fmt.Fprintf(out, "Moment created:\n")
	fmt.Fprintf(out, "ID: %s\n", moment.ID)
	fmt.Fprintf(out, "Author: %s\n", moment.Author)
	fmt.Fprintf(out, "Drop: %d\n", moment.DropID)
	if moment.TokenID != nil {
		fmt.Fprintf(out, "Token: %d\n", *moment.TokenID)
	}
	if len(moment.MediaKeys) > 0 {
		fmt.Fprintf(out, "Media: %s\n", strings.Join(moment.MediaKeys, ", "))
	}
	return nil
}

func readMediaFiles(paths []string) ([]moments.Media, error) {
	media := make([]moments.Media, 0, len(paths))
	for _, path := range paths {
		payload, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read media: %w", err)
		}
		media = append(media, moments.Media{
			Payload:  payload,
			MimeType: mimetype.Detect(payload).String(),
		})
	}
	return media, nil
}

// progressPrinter serializes output from concurrent uploads and prints each
// media item at most once per 25% step.
type progressPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	printed map[int]int
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out, printed: map[int]int{}}
}

func (p *progressPrinter) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

func (p *progressPrinter) media(index int, fraction float64) {
	quarter := int(fraction * 4)
	p.mu.Lock()
	defer p.mu.Unlock()
	if last, ok := p.printed[index]; ok && quarter <= last {
		return
	}
	if quarter == 0 {
		return
	}
	p.printed[index] = quarter
	fmt.Fprintf(p.out, "    media[%d] %3d%%\n", index, quarter*25)
}
