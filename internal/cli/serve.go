package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/duskward/affinity/internal/affinity"
	"github.com/duskward/affinity/internal/config"
	"github.com/duskward/affinity/internal/server"
	"github.com/duskward/affinity/internal/store"
	"github.com/duskward/affinity/internal/worldfile"
)

var worldPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the affinityd HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&worldPath, "world", "", "path to a world file (entity/institution definitions)")
}

func runServe(cmd *cobra.Command, args []string) error {
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

	if worldPath != "" {
		w, err := worldfile.Load(worldPath)
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
				log.Printf("load entity state %s: %v", ent.ID, err)
			}
		}
	}

	eng.StartWorldTickTimer()
	eng.StartInstitutionRefreshTimer(time.Hour)
	defer eng.Stop()

	srv := server.New(db, eng, VersionString())
	httpServer := &http.Server{
		Addr:    host.ListenAddr(),
		Handler: srv,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("affinityd listening on %s", host.ListenAddr())
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Printf("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}

	return saveAll(db, eng)
}

// saveAll persists every registered entity's mutable state on shutdown.
func saveAll(db *store.DB, eng *affinity.Engine) error {
	now := time.Now()
	for _, e := range eng.Registry.All() {
		kind := "location"
		switch e.Kind {
		case affinity.KindArtifact:
			kind = "artifact"
		case affinity.KindNPC:
			kind = "npc"
		}
		if err := store.SaveEntityState(db, e, kind, now); err != nil {
			log.Printf("save entity state %s: %v", e.ID, err)
		}
	}
	return nil
}
