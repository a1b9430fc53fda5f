package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"go-forum-app/internal/data"
	"go-forum-app/internal/render"
	"go-forum-app/internal/service"
)

var (
	rerenderAll bool
	topicIDs    []int64
	postIDs     []int64
)

var rerenderCmd = &cobra.Command{
	Use:   "rerender",
	Short: "Re-render stored topics and replies",
	Long: `Re-render the HTML of stored topics and replies from their raw content,
for example after a change to the markup or the sanitizer. Mentions are
linked again but nobody is notified.

Examples:
  forumctl rerender --all
  forumctl rerender --topics 3,7 --posts 12`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := data.NewDB(cfg.DB.DSN)
		if err != nil {
			return err
		}
		defer db.Close()

		users := data.NewUserRepository(db)
		store := data.ContentStore{Topics: data.NewTopicRepository(db), Posts: data.NewPostRepository(db)}
		r := service.NewRerenderer(store, render.NewRenderer(render.NewMarkdown(), users, render.DefaultProfileURL))

		out := cmd.OutOrStdout()
		return r.Run(cmd.Context(), service.RerenderRequest{
			All:      rerenderAll,
			TopicIDs: topicIDs,
			PostIDs:  postIDs,
		}, func(line string) { fmt.Fprintln(out, line) })
	},
}

func init() {
	rootCmd.AddCommand(rerenderCmd)

	rerenderCmd.Flags().BoolVar(&rerenderAll, "all", false, "Re-render every topic and reply")
	rerenderCmd.Flags().Int64SliceVar(&topicIDs, "topics", nil, "Topic ids to re-render")
	rerenderCmd.Flags().Int64SliceVar(&postIDs, "posts", nil, "Reply ids to re-render")
}
