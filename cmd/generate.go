package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"

	"ainia/pkg/apierr"
	"ainia/pkg/quest"
	"ainia/pkg/utils"
)

func newGenerateCmd(configPath *string) *cobra.Command {
	var (
		req quest.Request
		out string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one story through the full safety pipeline",
		Example: `  ainia generate --user kid-1 --theme Space --topic "why stars twinkle" --age 7
  ainia generate --user kid-1 --theme Forest --topic "how bees make honey" --age 5 --out story.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			id := ksuid.New().String()
			res, err := a.pipeline.GenerateStory(quest.WithRequestID(ctx, id), req)
			if err != nil {
				var e *apierr.Error
				if errors.As(err, &e) {
					a.logger.Debug("generation failed", "request", id, "error", err)
					return fmt.Errorf("%s (%s)", e.Reason, e.Kind)
				}
				return err
			}

			if out != "" {
				if err := utils.Save(out, res); err != nil {
					return fmt.Errorf("save story: %w", err)
				}
				fmt.Printf("Story saved to %s (cached: %t)\n", out, res.Cached)
				return nil
			}
			fmt.Println(utils.PrettyJSON(res))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.UserID, "user", "", "user id the daily limit is counted against")
	f.StringVar(&req.Theme, "theme", "Space", "story theme (Space or Forest)")
	f.StringVar(&req.Topic, "topic", "", "what the story should teach")
	f.IntVar(&req.Age, "age", 7, "reader age, 4 to 12")
	f.StringVarP(&out, "out", "o", "", "write the story JSON to this file instead of stdout")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}
