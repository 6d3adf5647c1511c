package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bernice-stories/bernice/internal/application/services"
	"github.com/bernice-stories/bernice/internal/domain/events"
	"github.com/bernice-stories/bernice/internal/infrastructure/caching/stores"
	"github.com/bernice-stories/bernice/internal/infrastructure/chain"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/performance"
	"github.com/bernice-stories/bernice/pkg/config"
)

var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "List known networks and contract deployments",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(cmd.OutOrStdout(), chain.Networks())
	},
}

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Read from the deployed story contract",
	Long: `Reads use BERNICE_RPC_URL, BERNICE_CHAIN_ID and BERNICE_CONTRACT_ADDRESS.
No transactions are sent from this tool.`,
}

var chainStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the connected network and contract",
	RunE: withChain(func(ctx context.Context, svc *services.ChainService, args []string) (any, error) {
		return svc.Status(), nil
	}),
}

var chainListLimit int

var chainListCmd = &cobra.Command{
	Use:   "stories",
	Short: "List stories, newest first",
	RunE: withChain(func(ctx context.Context, svc *services.ChainService, args []string) (any, error) {
		return svc.ListStories(ctx, chainListLimit)
	}),
}

var chainStoryCmd = &cobra.Command{
	Use:   "story <id>",
	Short: "Show a story with its accepted chapters",
	Args:  cobra.ExactArgs(1),
	RunE: withChain(func(ctx context.Context, svc *services.ChainService, args []string) (any, error) {
		return svc.CompleteStory(ctx, args[0])
	}),
}

var chainVotingCmd = &cobra.Command{
	Use:   "voting <id>",
	Short: "Show the voting window of a story's open chapter",
	Args:  cobra.ExactArgs(1),
	RunE: withChain(func(ctx context.Context, svc *services.ChainService, args []string) (any, error) {
		return svc.VotingStatus(ctx, args[0])
	}),
}

var chainSubmissionsCmd = &cobra.Command{
	Use:   "submissions <id>",
	Short: "List submissions for a story's open chapter",
	Args:  cobra.ExactArgs(1),
	RunE: withChain(func(ctx context.Context, svc *services.ChainService, args []string) (any, error) {
		st, err := svc.GetStory(ctx, args[0])
		if err != nil {
			return nil, err
		}
		n, err := svc.SubmissionsCount(ctx, args[0])
		if err != nil {
			return nil, err
		}
		chapter := strconv.FormatUint(st.CurrentChapterNumber+1, 10)
		subs := make([]*chain.OnChainSubmission, 0, n)
		for i := uint64(0); i < n; i++ {
			sub, err := svc.GetSubmission(ctx, args[0], chapter, strconv.FormatUint(i, 10))
			if err != nil {
				return nil, err
			}
			subs = append(subs, sub)
		}
		return subs, nil
	}),
}

func init() {
	chainListCmd.Flags().IntVar(&chainListLimit, "limit", 20, "Maximum number of stories")

	chainCmd.AddCommand(chainStatusCmd)
	chainCmd.AddCommand(chainListCmd)
	chainCmd.AddCommand(chainStoryCmd)
	chainCmd.AddCommand(chainVotingCmd)
	chainCmd.AddCommand(chainSubmissionsCmd)
}

// withChain connects a read-only chain service for the duration of one command.
func withChain(run func(ctx context.Context, svc *services.ChainService, args []string) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		settings, logger, err := loadSettings()
		if err != nil {
			return err
		}
		settings.SignerKey = ""

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		tracker := chain.NewTxTracker(events.Discard)
		client, err := chain.Connect(ctx, settings, tracker, logger)
		if err != nil {
			return fmt.Errorf("contract unavailable: %w", err)
		}
		defer client.Close()

		svc := services.NewChainService(client.Gateway, client.Network, nil, tracker,
			stores.NewReadStore(config.ReadCacheTTL), logger, performance.NewTracker(nil))
		result, err := run(ctx, svc, args)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	}
}
