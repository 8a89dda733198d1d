package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arran4/chat2png/internal/chat"
	"github.com/arran4/chat2png/internal/watch"
	apperrors "github.com/arran4/chat2png/pkg/errors"
	"github.com/arran4/chat2png/pkg/logger"
)

var (
	watchFlags    exportFlags
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch conversation.yaml",
	Short: "Re-export a conversation file whenever it changes",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	watchFlags.register(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period before re-exporting")
}

func runWatch(cmd *cobra.Command, args []string) error {
	path := args[0]
	r, err := watchFlags.renderer(filepath.Dir(path))
	if err != nil {
		return err
	}
	once := func(ctx context.Context) error {
		conv, err := chat.LoadFile(path)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrCodeValidation, err.Error(), err)
		}
		return watchFlags.run(ctx, cmd.OutOrStdout(), r, conv)
	}
	if err := once(cmd.Context()); err != nil {
		logger.Error("Initial export failed", zap.Error(err))
	}

	w, err := watch.New(path, watchDebounce, once)
	if err != nil {
		return err
	}
	return w.Run(cmd.Context())
}
