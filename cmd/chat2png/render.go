package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arran4/chat2png"
	"github.com/arran4/chat2png/internal/chat"
	"github.com/arran4/chat2png/internal/export"
	apperrors "github.com/arran4/chat2png/pkg/errors"
	"github.com/arran4/chat2png/pkg/logger"
)

// exportFlags are shared by render and watch.
type exportFlags struct {
	mode      string
	out       string
	userAgent string
	backend   string
	scale     float64
	richText  bool
}

func (f *exportFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "viewport", "export mode: viewport|full")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "output .png file or directory (default: export.output_dir)")
	cmd.Flags().StringVar(&f.userAgent, "user-agent", "", "client identification used to pick the raster backend")
	cmd.Flags().StringVar(&f.backend, "backend", "", "raster backend: auto|serialize|capture (overrides config)")
	cmd.Flags().Float64Var(&f.scale, "scale", 0, "pixel ratio (overrides config)")
	cmd.Flags().BoolVar(&f.richText, "rich-text", false, "render message text as Markdown")
}

func (f *exportFlags) renderer(baseDir string) (*chat2png.Renderer, error) {
	opts := chat2png.OptionsFromConfig(cfg, nil)
	if f.backend != "" {
		opts.Backend = f.backend
	}
	if f.scale > 0 {
		opts.Scale = f.scale
	}
	if f.richText {
		opts.RichText = true
	}
	if opts.BaseDir == "" {
		opts.BaseDir = baseDir
	}
	r, err := chat2png.NewRenderer(opts)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeConfigInvalid, "raster backend", err)
	}
	return r, nil
}

// saver writes to f.out: a path ending in .png names the file, anything
// else is a directory receiving the generated file name.
func (f *exportFlags) saver() (*export.DirSaver, export.Saver) {
	out := f.out
	if out == "" {
		out = cfg.Export.OutputDir
	}
	if strings.EqualFold(filepath.Ext(out), ".png") {
		dir := export.NewDirSaver(filepath.Dir(out))
		name := filepath.Base(out)
		return dir, export.SaverFunc(func(ctx context.Context, _ string, data []byte) error {
			return dir.Save(ctx, name, data)
		})
	}
	dir := export.NewDirSaver(out)
	return dir, dir
}

func (f *exportFlags) run(ctx context.Context, w io.Writer, r *chat2png.Renderer, conv chat.Conversation) error {
	mode, err := export.ParseMode(f.mode)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeValidation, err.Error(), err)
	}
	dir, saver := f.saver()

	s := r.NewSession(conv)
	defer s.Close()

	res, err := s.Export(export.WithUserAgent(ctx, f.userAgent), mode, saver)
	if err != nil {
		return err
	}
	if res == nil {
		return apperrors.Wrap(apperrors.ErrCodeNoRoot, "nothing to export", chat2png.ErrNothingExported)
	}
	logger.Info("Exported",
		zap.String("path", dir.LastPath()),
		zap.String("backend", res.Backend),
		zap.Int("bytes", res.Size),
		zap.Duration("duration", res.Duration),
	)
	fmt.Fprintln(w, dir.LastPath())
	return nil
}

var (
	renderFlags exportFlags
	renderDemo  bool
)

var renderCmd = &cobra.Command{
	Use:   "render [conversation.yaml|-]",
	Short: "Export a conversation file as PNG",
	Long: `Render reads a conversation (YAML or JSON; "-" for stdin), builds the chat
preview and exports it.

  chat2png render chat.yaml --mode full -o out/
  chat2png render --demo -o demo.png`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	renderFlags.register(renderCmd)
	renderCmd.Flags().BoolVar(&renderDemo, "demo", false, "render the built-in sample conversation")
}

func loadConversation(args []string, demo bool) (chat.Conversation, string, error) {
	wd, _ := os.Getwd()
	switch {
	case len(args) == 0 && demo:
		return chat.New(), wd, nil
	case len(args) == 0:
		return chat.Conversation{}, "", apperrors.ErrValidation("a conversation file or --demo is required")
	case args[0] == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return chat.Conversation{}, "", apperrors.ErrInternal("read stdin", err)
		}
		c, err := chat.Parse(data, wd)
		if err != nil {
			return chat.Conversation{}, "", apperrors.Wrap(apperrors.ErrCodeValidation, err.Error(), err)
		}
		return c, wd, nil
	}
	c, err := chat.LoadFile(args[0])
	if err != nil {
		return chat.Conversation{}, "", apperrors.Wrap(apperrors.ErrCodeValidation, err.Error(), err)
	}
	return c, filepath.Dir(args[0]), nil
}

func runRender(cmd *cobra.Command, args []string) error {
	conv, baseDir, err := loadConversation(args, renderDemo)
	if err != nil {
		return err
	}
	r, err := renderFlags.renderer(baseDir)
	if err != nil {
		return err
	}
	return renderFlags.run(cmd.Context(), cmd.OutOrStdout(), r, conv)
}
