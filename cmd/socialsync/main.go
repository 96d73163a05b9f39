package main

import (
	"context"
	"fmt"
	"os"

	clientcmd "github.com/step2this/social-media-app-sub010/internal/cmd/client"
	serverrun "github.com/step2this/social-media-app-sub010/internal/cmd/server"
	cfgpkg "github.com/step2this/social-media-app-sub010/internal/config"
	pebblestore "github.com/step2this/social-media-app-sub010/internal/storage/pebble"
	logpkg "github.com/step2this/social-media-app-sub010/pkg/log"
	"github.com/spf13/cobra"
)

func main() {
	level := os.Getenv("SOCIAL_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)
	logpkg.RedirectStdLog(logger)

	var (
		dataDir    string
		configPath string
	)

	rootCmd := &cobra.Command{
		Use:   "socialsync",
		Short: "socialsync keeps a social graph's derived state consistent",
		Long:  "socialsync runs the event pipeline that keeps posts, relationship counters, and read caches of a social graph in sync.",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (defaults to the platform data dir)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a JSON or YAML config file")

	loadConfig := func() (cfgpkg.Config, error) {
		cfg, err := cfgpkg.Load(configPath)
		if err != nil {
			return cfgpkg.Config{}, err
		}
		cfgpkg.FromEnv(&cfg)
		return cfg, nil
	}

	withSession := func(fn func(ctx context.Context, s *clientcmd.Session) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s, err := clientcmd.OpenSession(dataDir, cfg)
			if err != nil {
				return err
			}
			defer s.Close()
			return fn(cmd.Context(), s)
		}
	}

	// server
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	var fsyncMode string
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the socialsync pipeline",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode := pebblestore.FsyncModeAlways
			switch fsyncMode {
			case "always":
				mode = pebblestore.FsyncModeAlways
			case "interval":
				mode = pebblestore.FsyncModeInterval
			case "never":
				mode = pebblestore.FsyncModeNever
			default:
				return fmt.Errorf("invalid --fsync; use always|interval|never")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serverrun.Run(cmd.Context(), serverrun.Options{
				DataDir: dataDir,
				Fsync:   mode,
				Config:  cfg,
				Logger:  logger,
			})
		},
	}
	serverStartCmd.Flags().StringVar(&fsyncMode, "fsync", "always", "fsync mode: always|interval|never")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	// post
	postCmd := &cobra.Command{Use: "post", Short: "Post commands"}
	var postID, authorID, content, cursorToken string
	var pageLimit int
	postCreateCmd := &cobra.Command{
		Use:   "create",
		Short: "Publish a post.created event",
		RunE: withSession(func(ctx context.Context, s *clientcmd.Session) error {
			return s.CreatePost(ctx, postID, authorID, content)
		}),
	}
	postCreateCmd.Flags().StringVar(&postID, "id", "", "post ID")
	postCreateCmd.Flags().StringVar(&authorID, "author", "", "author user ID")
	postCreateCmd.Flags().StringVar(&content, "content", "", "post body")
	postDeleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Publish a post.deleted event",
		RunE: withSession(func(ctx context.Context, s *clientcmd.Session) error {
			return s.DeletePost(ctx, postID, authorID)
		}),
	}
	postDeleteCmd.Flags().StringVar(&postID, "id", "", "post ID")
	postDeleteCmd.Flags().StringVar(&authorID, "author", "", "author user ID")
	postListCmd := &cobra.Command{
		Use:   "list",
		Short: "List an author's posts as a connection page",
		RunE: withSession(func(_ context.Context, s *clientcmd.Session) error {
			return s.PrintPosts(authorID, cursorToken, pageLimit)
		}),
	}
	postListCmd.Flags().StringVar(&authorID, "author", "", "author user ID")
	postListCmd.Flags().StringVar(&cursorToken, "cursor", "", "resume cursor from a previous page")
	postListCmd.Flags().IntVar(&pageLimit, "limit", 20, "page size")
	postCmd.AddCommand(postCreateCmd, postDeleteCmd, postListCmd)
	rootCmd.AddCommand(postCmd)

	// like / unlike
	var userID string
	likeCmd := &cobra.Command{
		Use:   "like",
		Short: "Publish a post.liked event",
		RunE: withSession(func(ctx context.Context, s *clientcmd.Session) error {
			return s.Like(ctx, userID, postID)
		}),
	}
	likeCmd.Flags().StringVar(&userID, "user", "", "liking user ID")
	likeCmd.Flags().StringVar(&postID, "post", "", "post ID")
	unlikeCmd := &cobra.Command{
		Use:   "unlike",
		Short: "Publish a post.unliked event",
		RunE: withSession(func(ctx context.Context, s *clientcmd.Session) error {
			return s.Unlike(ctx, userID, postID)
		}),
	}
	unlikeCmd.Flags().StringVar(&userID, "user", "", "liking user ID")
	unlikeCmd.Flags().StringVar(&postID, "post", "", "post ID")
	rootCmd.AddCommand(likeCmd, unlikeCmd)

	// follow / unfollow
	var subjectID, objectID string
	followCmd := &cobra.Command{
		Use:   "follow",
		Short: "Publish a user.followed event",
		RunE: withSession(func(ctx context.Context, s *clientcmd.Session) error {
			return s.Follow(ctx, subjectID, objectID)
		}),
	}
	followCmd.Flags().StringVar(&subjectID, "subject", "", "follower user ID")
	followCmd.Flags().StringVar(&objectID, "object", "", "followed user ID")
	unfollowCmd := &cobra.Command{
		Use:   "unfollow",
		Short: "Publish a user.unfollowed event",
		RunE: withSession(func(ctx context.Context, s *clientcmd.Session) error {
			return s.Unfollow(ctx, subjectID, objectID)
		}),
	}
	unfollowCmd.Flags().StringVar(&subjectID, "subject", "", "follower user ID")
	unfollowCmd.Flags().StringVar(&objectID, "object", "", "followed user ID")
	rootCmd.AddCommand(followCmd, unfollowCmd)

	// counters / preview
	countersCmd := &cobra.Command{
		Use:   "counters <TYPE#id>",
		Short: "Show an entity's denormalized counters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(_ context.Context, s *clientcmd.Session) error {
				return s.PrintCounters(args[0])
			})(cmd, args)
		},
	}
	previewCmd := &cobra.Command{
		Use:   "preview <userID>",
		Short: "Show a user's cached post preview list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(_ context.Context, s *clientcmd.Session) error {
				return s.PrintPreview(args[0])
			})(cmd, args)
		},
	}
	rootCmd.AddCommand(countersCmd, previewCmd)

	// dlq
	dlqCmd := &cobra.Command{Use: "dlq", Short: "Dead-letter queue commands"}
	var dlqMax int
	dlqListCmd := &cobra.Command{
		Use:   "list",
		Short: "List dead-lettered messages",
		RunE: withSession(func(_ context.Context, s *clientcmd.Session) error {
			return s.PrintDeadLetters(dlqMax)
		}),
	}
	dlqListCmd.Flags().IntVar(&dlqMax, "max", 0, "limit entries (0 = all)")
	dlqRequeueCmd := &cobra.Command{
		Use:   "requeue <id>",
		Short: "Redeliver one dead-lettered message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, s *clientcmd.Session) error {
				return s.RequeueDeadLetter(ctx, args[0])
			})(cmd, args)
		},
	}
	dlqPurgeCmd := &cobra.Command{
		Use:   "purge <id>",
		Short: "Drop one dead-lettered message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, s *clientcmd.Session) error {
				return s.PurgeDeadLetter(ctx, args[0])
			})(cmd, args)
		},
	}
	dlqCmd.AddCommand(dlqListCmd, dlqRequeueCmd, dlqPurgeCmd)
	rootCmd.AddCommand(dlqCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
