// Command graphd-seed populates a graphd database with a synthetic
// user/team graph for load testing: a deterministic, seedable generator
// that commits in batches through internal/schema's upsert primitives so
// every row lands in the same indexes the live server reads.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/elo-graph/elo/internal/kv"
	"github.com/elo-graph/elo/internal/logging"
	"github.com/elo-graph/elo/internal/schema"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "graphd-seed",
	Short: "graphd-seed - populate a graphd database with synthetic users and teams",
	RunE:  runSeed,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logging.Errorf("graphd-seed: %v", err)
		os.Exit(1)
	}
}

// lcg is a direct port of seed.rs's Lcg: a 64-bit linear congruential
// generator seeded for reproducible fixtures, not cryptographic use.
type lcg struct{ state uint64 }

func newLCG(seed uint64) *lcg { return &lcg{state: seed} }

func (l *lcg) nextU32() uint32 {
	l.state = l.state*6364136223846793005 + 1
	return uint32(l.state >> 32)
}

func (l *lcg) genRange(max uint32) uint32 {
	if max == 0 {
		return 0
	}
	return l.nextU32() % max
}

func envUint(key string, def uint32) uint32 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return def
	}
	return uint32(n)
}

func envUint64(key string, def uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string) bool {
	return os.Getenv(key) == "true"
}

func runSeed(cmd *cobra.Command, args []string) error {
	dbPath := os.Getenv("ELO_DB_PATH")
	if dbPath == "" {
		dbPath = "elo.redb"
	}
	if envBool("SEED_RESET") {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("graphd-seed: resetting %s: %w", dbPath, err)
		}
	}

	numUsers := envUint("SEED_USERS", 100_000)
	numTeams := envUint("SEED_TEAMS", 10_000)
	userEdges := envUint("SEED_USER_EDGES", 5)
	teamEdges := envUint("SEED_TEAM_EDGES", 5)
	ratingMin := envUint("SEED_RATING_MIN", 300)
	ratingMax := envUint("SEED_RATING_MAX", 900)
	batchSize := envUint("SEED_BATCH", 10_000)
	rngSeed := envUint64("SEED_RANDOM", 42)

	store, err := kv.Open(dbPath)
	if err != nil {
		return fmt.Errorf("graphd-seed: opening %s: %w", dbPath, err)
	}
	defer func() { _ = store.Close() }()

	rng := newLCG(rngSeed)
	if err := seedNodes(store, numUsers, numTeams, ratingMin, ratingMax, batchSize, rng); err != nil {
		return fmt.Errorf("graphd-seed: seeding nodes: %w", err)
	}
	if err := seedEdges(store, numUsers, numTeams, userEdges, teamEdges, batchSize, rng); err != nil {
		return fmt.Errorf("graphd-seed: seeding edges: %w", err)
	}

	logging.Infof("graphd-seed: seeded users=%d teams=%d user_edges=%d team_edges=%d", numUsers, numTeams, userEdges, teamEdges)
	return nil
}

func userID(idx uint32) []byte { return []byte(fmt.Sprintf("user:%d", idx)) }
func teamID(idx uint32) []byte { return []byte(fmt.Sprintf("team:%d", idx)) }

func seedNodes(store *kv.Store, numUsers, numTeams, ratingMin, ratingMax, batchSize uint32, rng *lcg) error {
	for current := uint32(0); current < numUsers; {
		end := current + batchSize
		if end > numUsers {
			end = numUsers
		}
		err := store.Update(func(tx *kv.Tx) error {
			for idx := current; idx < end; idx++ {
				id := userID(idx)
				if err := schema.CreateNode(tx, id); err != nil {
					return err
				}
				if err := schema.UpsertNodeProperty(tx, id, "type", "user"); err != nil {
					return err
				}
				if err := schema.UpsertNodeProperty(tx, id, schema.StatusKey, schema.StatusActive); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		current = end
	}

	ratingSpan := ratingMax - ratingMin + 1
	for current := uint32(0); current < numTeams; {
		end := current + batchSize
		if end > numTeams {
			end = numTeams
		}
		err := store.Update(func(tx *kv.Tx) error {
			for idx := current; idx < end; idx++ {
				id := teamID(idx)
				if err := schema.CreateNode(tx, id); err != nil {
					return err
				}
				if err := schema.UpsertNodeProperty(tx, id, "type", "team"); err != nil {
					return err
				}
				if err := schema.UpsertNodeProperty(tx, id, schema.StatusKey, schema.StatusActive); err != nil {
					return err
				}
				rating := ratingMin + rng.genRange(ratingSpan)
				if err := schema.UpsertNodeProperty(tx, id, "rating", strconv.FormatUint(uint64(rating), 10)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		current = end
	}

	return nil
}

func seedEdges(store *kv.Store, numUsers, numTeams, userEdges, teamEdges, batchSize uint32, rng *lcg) error {
	for current := uint32(0); current < numUsers; {
		end := current + batchSize
		if end > numUsers {
			end = numUsers
		}
		err := store.Update(func(tx *kv.Tx) error {
			for userIdx := current; userIdx < end; userIdx++ {
				from := userID(userIdx)
				chosen := make(map[uint32]bool, userEdges)
				for uint32(len(chosen)) < userEdges && uint32(len(chosen)) < numTeams {
					teamIdx := rng.genRange(numTeams)
					if chosen[teamIdx] {
						continue
					}
					chosen[teamIdx] = true
					to := teamID(teamIdx)
					if err := schema.CreateEdge(tx, from, to); err != nil {
						return err
					}
					if err := schema.UpsertEdgeProperty(tx, from, to, "type", "owner"); err != nil {
						return err
					}
					if err := schema.UpsertEdgeProperty(tx, from, to, schema.StatusKey, schema.StatusActive); err != nil {
						return err
					}
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		current = end
	}

	for current := uint32(0); current < numTeams; {
		end := current + batchSize
		if end > numTeams {
			end = numTeams
		}
		err := store.Update(func(tx *kv.Tx) error {
			for teamIdx := current; teamIdx < end; teamIdx++ {
				from := teamID(teamIdx)
				chosen := make(map[uint32]bool, teamEdges)
				for uint32(len(chosen)) < teamEdges && uint32(len(chosen)) < numTeams {
					toIdx := rng.genRange(numTeams)
					if toIdx == teamIdx || chosen[toIdx] {
						continue
					}
					chosen[toIdx] = true
					to := teamID(toIdx)
					if err := schema.CreateEdge(tx, from, to); err != nil {
						return err
					}
					weight := 0.5 + float64(rng.genRange(150))/100.0
					if err := schema.UpsertEdgeProperty(tx, from, to, "weight", strconv.FormatFloat(weight, 'f', 2, 64)); err != nil {
						return err
					}
					if err := schema.UpsertEdgeProperty(tx, from, to, schema.StatusKey, schema.StatusActive); err != nil {
						return err
					}
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		current = end
	}

	return nil
}
