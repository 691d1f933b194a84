package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/duskward/affinity/internal/affinity"
	"github.com/duskward/affinity/internal/config"
	"github.com/duskward/affinity/internal/store"
	"github.com/duskward/affinity/internal/worldfile"
)

var tickWorldPath string
var tickCompact bool

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run a single world tick (and optionally compaction) against the saved database, then exit",
	RunE:  runTick,
}

func init() {
	tickCmd.Flags().StringVar(&tickWorldPath, "world", "", "path to a world file (entity/institution definitions)")
	tickCmd.Flags().BoolVar(&tickCompact, "compact", false, "also run trace compaction after the tick")
}

func runTick(cmd *cobra.Command, args []string) error {
	host, tuning, err := config.Load()
	if err != nil {
		return err
	}

	dbPath := host.Database.Path
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return err
		}
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	catalog, err := affinity.NewAffordanceRegistry(affinity.DefaultCatalog())
	if err != nil {
		return err
	}
	eng := affinity.New(tuning, catalog)

	if tickWorldPath == "" {
		return fmt.Errorf("--world is required")
	}
	w, err := worldfile.Load(tickWorldPath)
	if err != nil {
		return err
	}
	w.Populate(eng.Registry)
	for _, ent := range w.Entities {
		e, err := eng.Registry.Get(ent.ID)
		if err != nil {
			continue
		}
		if _, err := store.LoadEntityState(db, e); err != nil {
			return fmt.Errorf("load entity state %s: %w", ent.ID, err)
		}
	}

	now := time.Now()
	reports := eng.Tick(now)
	fmt.Printf("ticked %d entities\n", len(reports))

	if tickCompact {
		creports := eng.Compact(now)
		fmt.Printf("compacted %d entities\n", len(creports))
	}

	return saveAll(db, eng)
}
