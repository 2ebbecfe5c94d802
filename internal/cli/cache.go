package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/winnowlabs/winnow/internal/cache"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the per-subject fragment cache",
	Long: `Manage the on-disk fragment and embedding cache.

Each subject gets its own namespace directory; deleting one forces the next
question about that subject to search, fetch and embed from scratch.`,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear <subject>",
	Short: "Delete a subject's cached fragments and embeddings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		store := cache.NewDiskStore(cfg.Cache.Dir)
		if err := store.Clear(args[0]); err != nil {
			return fmt.Errorf("clear cache for %q: %w", args[0], err)
		}
		fmt.Printf("Cleared cache namespace %s for %q\n", cache.Namespace(args[0]), args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
