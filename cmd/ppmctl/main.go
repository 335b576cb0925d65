package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"ppm-backend/internal/application/booking"
	plansvc "ppm-backend/internal/application/planning"
	"ppm-backend/internal/application/risk"
	"ppm-backend/internal/domain"
	"ppm-backend/internal/infrastructure/database"
	"ppm-backend/internal/infrastructure/inventory"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// cli carries per-invocation settings so tests can build independent command trees.
type cli struct {
	v   *viper.Viper
	now func() time.Time
}

func newRootCmd() *cobra.Command {
	return (&cli{v: viper.New(), now: time.Now}).root()
}

func (c *cli) root() *cobra.Command {
	root := &cobra.Command{
		Use:           "ppmctl",
		Short:         "Inspect and seed the resource ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("file", "", "inventory YAML (used when no database is configured)")
	root.PersistentFlags().String("database-url", "", "Postgres DSN")
	root.PersistentFlags().Bool("json", false, "output JSON")
	_ = c.v.BindPFlag("file", root.PersistentFlags().Lookup("file"))
	_ = c.v.BindPFlag("database-url", root.PersistentFlags().Lookup("database-url"))
	_ = c.v.BindPFlag("json", root.PersistentFlags().Lookup("json"))
	_ = c.v.BindEnv("file", "INVENTORY_FILE")
	_ = c.v.BindEnv("database-url", "DATABASE_URL")
	_ = c.v.BindEnv("redis-url", "REDIS_URL")

	root.AddCommand(c.seedCmd(), c.riskCmd(), c.auditCmd(), c.capacityCmd())
	return root
}

type sources struct {
	resources risk.Lister
	planning  plansvc.Source
}

func (c *cli) open(ctx context.Context) (*sources, error) {
	if dsn := c.v.GetString("database-url"); dsn != "" {
		db, err := database.Open(dsn)
		if err != nil {
			return nil, err
		}
		return &sources{resources: &booking.GormStore{DB: db}, planning: plansvc.GormSource{DB: db}}, nil
	}
	file := c.v.GetString("file")
	if file == "" {
		return nil, errors.New("set --file or DATABASE_URL")
	}
	inv, err := inventory.Load(file)
	if err != nil {
		return nil, err
	}
	mem := booking.NewMemoryStore()
	if err := inventory.Provision(ctx, mem, inv); err != nil {
		return nil, err
	}
	return &sources{resources: mem, planning: plansvc.StaticSource{PoolList: inv.Pools, ProjectList: inv.Projects}}, nil
}

func (c *cli) printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	return tw
}

func (c *cli) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the inventory file into Postgres (existing rows are kept)",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, dsn := c.v.GetString("file"), c.v.GetString("database-url")
			if file == "" || dsn == "" {
				return errors.New("seed needs --file and DATABASE_URL")
			}
			inv, err := inventory.Load(file)
			if err != nil {
				return err
			}
			db, err := database.Open(dsn)
			if err != nil {
				return err
			}
			return c.seed(cmd.Context(), cmd.OutOrStdout(), db, inv)
		},
	}
}

func (c *cli) seed(ctx context.Context, w io.Writer, db *gorm.DB, inv *inventory.Inventory) error {
	if err := database.AutoMigrate(db); err != nil {
		return err
	}
	res, err := inventory.Seed(ctx, db, inv)
	if err != nil {
		return err
	}
	// cached capacity tables were built from the old projects
	if url := c.v.GetString("redis-url"); url != "" {
		if opt, err := redis.ParseURL(url); err == nil {
			rdb := redis.NewClient(opt)
			defer rdb.Close()
			if err := (&plansvc.Service{Rdb: rdb}).Invalidate(ctx); err != nil {
				fmt.Fprintln(w, "warning: capacity cache not cleared:", err)
			}
		}
	}
	if c.v.GetBool("json") {
		return c.printJSON(w, res)
	}
	tw := newTable(w)
	tw.AppendHeader(table.Row{"Pools", "Projects", "Resources", "Users"})
	tw.AppendRow(table.Row{res.Pools, res.Projects, res.Resources, res.Users})
	tw.Render()
	return nil
}

func (c *cli) riskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "risk",
		Short: "Rank resources by risk score",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			ranked, err := (&risk.Service{Resources: src.resources, Now: c.now}).RankedResources(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if c.v.GetBool("json") {
				return c.printJSON(w, ranked)
			}
			tw := newTable(w)
			tw.AppendHeader(table.Row{"ID", "Kind", "Status", "Health", "Score", "Maintenance In", "Factors"})
			for _, a := range ranked {
				due := "-"
				if a.DaysUntilMaintenance != nil {
					due = fmt.Sprintf("%dd", *a.DaysUntilMaintenance)
				}
				tw.AppendRow(table.Row{a.Resource.ID, a.Resource.Kind, a.Resource.Status,
					fmt.Sprintf("%.0f", a.Resource.Health), a.Score, due, strings.Join(a.Factors, ", ")})
			}
			tw.Render()
			return nil
		},
	}
}

func (c *cli) auditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "List overlapping active bookings",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			pairs, err := (&risk.Service{Resources: src.resources, Now: c.now}).Conflicts(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if c.v.GetBool("json") {
				if pairs == nil {
					pairs = []risk.ConflictPair{}
				}
				return c.printJSON(w, pairs)
			}
			if len(pairs) == 0 {
				fmt.Fprintln(w, "no conflicts")
				return nil
			}
			tw := newTable(w)
			tw.AppendHeader(table.Row{"Resource", "First", "Second"})
			for _, p := range pairs {
				tw.AppendRow(table.Row{p.ResourceID, describe(p.First), describe(p.Second)})
			}
			tw.Render()
			return nil
		},
	}
}

func describe(b domain.Booking) string {
	return fmt.Sprintf("%s %s..%s", b.ProjectID, b.StartDate.Format(domain.DateLayout), b.EndDate.Format(domain.DateLayout))
}

func (c *cli) capacityCmd() *cobra.Command {
	var horizon int
	var period string
	cmd := &cobra.Command{
		Use:   "capacity",
		Short: "Show pool capacity against project demand",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := plansvc.ParsePeriod(period)
			if err != nil {
				return err
			}
			src, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			svc := &plansvc.Service{Source: src.planning, Now: c.now}
			t, err := svc.CapacityTable(cmd.Context(), horizon, p)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if c.v.GetBool("json") {
				return c.printJSON(w, t)
			}
			tw := newTable(w)
			header := table.Row{"Pool"}
			for _, b := range t.Buckets {
				header = append(header, b.Label)
			}
			tw.AppendHeader(header)
			for _, pc := range t.Pools {
				row := table.Row{pc.Pool.Name}
				for _, a := range pc.Allocations {
					cell := fmt.Sprintf("%d/%d (%.1f%%)", a.Used, a.Capacity, a.Utilization)
					if a.OverAllocated {
						cell += " !"
					}
					row = append(row, cell)
				}
				tw.AppendRow(row)
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&horizon, "horizon", plansvc.DefaultHorizon, "number of periods")
	cmd.Flags().StringVar(&period, "period", "month", "week, month or quarter")
	return cmd
}
