// Package main validates an item catalog directory and, optionally, every
// snapshot in a snapshot directory against it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/stash/internal/game/inventory"
	"github.com/cory-johannsen/stash/internal/game/item"
	"github.com/cory-johannsen/stash/internal/storage/file"
)

func main() {
	start := time.Now()

	catalogDir := flag.String("catalog", "content/items", "path to item definition YAML directory")
	snapshotDir := flag.String("snapshots", "", "snapshot directory to verify; empty skips snapshot checks")
	verbose := flag.Bool("v", false, "list every item definition")
	flag.Parse()

	catalog, err := item.LoadCatalog(*catalogDir)
	if err != nil {
		log.Fatalf("loading catalog: %v", err)
	}

	defs := catalog.All()
	byCategory := make(map[item.Category]int)
	for _, d := range defs {
		byCategory[d.Category]++
		if *verbose {
			fmt.Fprintf(os.Stdout, "%-40s %-14s max_stack=%d\n", d.ID, d.Category, d.MaxStack)
		}
	}
	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, string(c))
	}
	sort.Strings(categories)
	fmt.Fprintf(os.Stdout, "catalog %s: %d items\n", *catalogDir, len(defs))
	for _, c := range categories {
		fmt.Fprintf(os.Stdout, "  %-14s %d\n", c, byCategory[item.Category(c)])
	}

	if *snapshotDir == "" {
		fmt.Fprintf(os.Stdout, "ok [%s]\n", time.Since(start))
		return
	}

	store, err := file.NewSnapshotStore(*snapshotDir, zap.NewNop())
	if err != nil {
		log.Fatalf("opening snapshot directory: %v", err)
	}
	names, err := store.List()
	if err != nil {
		log.Fatalf("listing snapshots: %v", err)
	}

	failed := 0
	for _, name := range names {
		if err := checkSnapshot(store, name, catalog); err != nil {
			fmt.Fprintf(os.Stdout, "snapshot %s: FAIL: %v\n", name, err)
			failed++
			continue
		}
		fmt.Fprintf(os.Stdout, "snapshot %s: ok\n", name)
	}
	if failed > 0 {
		log.Fatalf("%d of %d snapshots failed [%s]", failed, len(names), time.Since(start))
	}
	fmt.Fprintf(os.Stdout, "ok: %d snapshots [%s]\n", len(names), time.Since(start))
}

// checkSnapshot loads name and imports it into a scratch manager, which
// verifies every ID and slot against catalog.
func checkSnapshot(store *file.SnapshotStore, name string, catalog *item.Catalog) error {
	st, err := store.Load(context.Background(), name)
	if err != nil {
		return err
	}
	mgr := inventory.NewManager(item.NewModifiedRegistry(catalog), nil)
	return mgr.Import(*st)
}
