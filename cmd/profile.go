// File: cmd/profile.go
package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkaelum/harrier/api/schemas"
	"github.com/xkaelum/harrier/internal/browser"
	"github.com/xkaelum/harrier/internal/observability"
	"github.com/xkaelum/harrier/internal/rpc"
)

// profileCaller is the slice of the RPC client the profile commands use.
type profileCaller interface {
	Call(ctx context.Context, method string, params any, out any) error
}

// liveEngine returns a client for an engine already listening on the
// configured port, or nil when none is reachable. Profile commands go through
// the live pool when they can: deleting there also tears down the live
// context and cancels in-flight work, which a plain directory removal cannot
// do. Without an engine they fall back to the on-disk identities.
var liveEngine = func(ctx context.Context) profileCaller {
	client := rpc.NewClient(cfg.Engine.Port)
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Health(probeCtx); err != nil {
		return nil
	}
	return client
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage persisted browser profile identities.",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted profiles and their fingerprint settings.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if client := liveEngine(ctx); client != nil {
			var profiles []schemas.ProfileMetadata
			if err := client.Call(ctx, schemas.MethodListProfiles, nil, &profiles); err != nil {
				return err
			}
			return printJSON(profiles)
		}
		return printJSON(browser.ListPersisted(cfg.Engine.ProfileDir))
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a profile identity, tearing down its live browser context.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if client := liveEngine(ctx); client != nil {
			params := schemas.ProfileParams{ProfileID: args[0]}
			if err := client.Call(ctx, schemas.MethodDeleteProfile, params, nil); err != nil {
				return err
			}
		} else if err := browser.RemovePersisted(cfg.Engine.ProfileDir, args[0]); err != nil {
			return err
		}
		observability.GetLogger().Info("Profile removed", zap.String("profile", args[0]))
		return nil
	},
}

func init() {
	profileCmd.AddCommand(profileListCmd, profileDeleteCmd)
	rootCmd.AddCommand(profileCmd)
}
