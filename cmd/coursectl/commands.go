// Coursemate - Learning Material Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursemate

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/tomtom215/coursemate/internal/bundle"
	"github.com/tomtom215/coursemate/internal/cluster"
	"github.com/tomtom215/coursemate/internal/logging"
	"github.com/tomtom215/coursemate/internal/model"
	"github.com/tomtom215/coursemate/internal/recommend"
)

func newRootCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:   "coursectl",
		Usage:  "Offline tooling for Coursemate model bundles",
		Writer: out,
		Commands: []*cli.Command{
			cmdInspect(),
			cmdRecommend(),
			cmdImport(),
			cmdLabel(),
		},
	}
}

func bundleFlag(dest *string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "bundle",
		Aliases:     []string{"b"},
		Usage:       "model bundle location (path, file://, http(s):// or badger://DIR)",
		Required:    true,
		Destination: dest,
		Sources:     cli.EnvVars("MODEL_SOURCE"),
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// loadStore opens location and publishes its bundle in a fresh store.
func loadStore(ctx context.Context, location string) (*model.Store, func(), error) {
	src, err := bundle.Open(bundle.SourceConfig{
		Location:    location,
		BadgerKey:   bundle.DefaultBadgerKey,
		HTTPTimeout: 30 * time.Second,
	})
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if c, ok := src.(io.Closer); ok {
			_ = c.Close() //nolint:errcheck // read-only use
		}
	}

	store := model.NewStore(src, model.StoreConfig{}, logging.WithComponent("coursectl"))
	if _, err := store.Load(ctx); err != nil {
		release()
		return nil, nil, err
	}
	return store, release, nil
}

func cmdInspect() *cli.Command {
	var location string

	return &cli.Command{
		Name:  "inspect",
		Usage: "Validate a model bundle and print its summary",
		Flags: []cli.Flag{bundleFlag(&location)},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			store, release, err := loadStore(ctx, location)
			if err != nil {
				return err
			}
			defer release()
			return writeJSON(cmd.Root().Writer, store.Status())
		},
	}
}

func cmdRecommend() *cli.Command {
	var (
		location string
		userID   string
		n        int
	)

	return &cli.Command{
		Name:  "recommend",
		Usage: "Run one recommendation against a bundle",
		Flags: []cli.Flag{
			bundleFlag(&location),
			&cli.StringFlag{
				Name:        "user",
				Aliases:     []string{"u"},
				Usage:       "user ID; defaults to the first user in the engagement table",
				Destination: &userID,
			},
			&cli.IntFlag{
				Name:        "n",
				Usage:       "number of recommendations",
				Value:       3,
				Destination: &n,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			store, release, err := loadStore(ctx, location)
			if err != nil {
				return err
			}
			defer release()

			if userID == "" {
				users := store.Snapshot().Users()
				if len(users) == 0 {
					return errors.New("bundle has no users")
				}
				userID = users[0]
			}

			cfg := recommend.DefaultConfig()
			cfg.Cache.Enabled = false
			engine, err := recommend.NewEngine(store, cfg, logging.WithComponent("coursectl"))
			if err != nil {
				return err
			}

			result, err := engine.Recommend(ctx, recommend.Request{UserID: userID, N: n})
			if err != nil {
				return err
			}
			return writeJSON(cmd.Root().Writer, struct {
				*recommend.Result
				Recommendations []string `json:"recommendations"`
			}{result, result.Sequence()})
		},
	}
}

func cmdImport() *cli.Command {
	var (
		path      string
		badgerDir string
		key       string
	)

	return &cli.Command{
		Name:  "import",
		Usage: "Validate a bundle file and store it in a badger database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "bundle",
				Aliases:     []string{"b"},
				Usage:       "bundle file to import",
				Required:    true,
				Destination: &path,
			},
			&cli.StringFlag{
				Name:        "badger-dir",
				Usage:       "badger database directory",
				Required:    true,
				Destination: &badgerDir,
			},
			&cli.StringFlag{
				Name:        "key",
				Usage:       "key to store the bundle under",
				Value:       bundle.DefaultBadgerKey,
				Destination: &key,
				Sources:     cli.EnvVars("MODEL_BADGER_KEY"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
			if err != nil {
				return fmt.Errorf("read bundle: %w", err)
			}
			payload, err := bundle.Decode(data)
			if err != nil {
				return err
			}
			snap, err := model.NewSnapshot(payload.Bundle)
			if err != nil {
				return err
			}

			dst, err := bundle.OpenBadgerSource(badgerDir, key)
			if err != nil {
				return err
			}
			defer func() { _ = dst.Close() }() //nolint:errcheck // Put already reported write errors

			if err := dst.Put(ctx, data); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.Root().Writer, "imported %s into %s (%d users, %d items, sha256 %s)\n",
				path, dst, snap.UserCount(), snap.ItemCount(), payload.Checksum)
			return err
		},
	}
}

func cmdLabel() *cli.Command {
	var (
		csvPath string
		userID  string
	)

	return &cli.Command{
		Name:  "label",
		Usage: "Print the cluster label of a user",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "csv",
				Usage:       "cluster CSV file",
				Value:       "Output_User_Clusters.csv",
				Destination: &csvPath,
				Sources:     cli.EnvVars("CLUSTER_CSV_PATH"),
			},
			&cli.StringFlag{
				Name:        "user",
				Aliases:     []string{"u"},
				Usage:       "user ID",
				Required:    true,
				Destination: &userID,
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			labels, err := cluster.LoadCSV(csvPath)
			if err != nil {
				return err
			}
			code, label := labels.Label(userID)
			return writeJSON(cmd.Root().Writer, map[string]any{
				"user_id":        userID,
				"cluster_id":     code,
				"cluster_status": label,
			})
		},
	}
}
