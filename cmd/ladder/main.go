package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kapu/glicko-ladder-go/internal/chart"
	appcfg "github.com/kapu/glicko-ladder-go/internal/config"
	"github.com/kapu/glicko-ladder-go/internal/export"
	"github.com/kapu/glicko-ladder-go/internal/glicko"
	"github.com/kapu/glicko-ladder-go/internal/ladder"
	"github.com/kapu/glicko-ladder-go/internal/msgcat"
	"github.com/kapu/glicko-ladder-go/internal/obslog"
	"github.com/kapu/glicko-ladder-go/internal/store"
	"github.com/kapu/glicko-ladder-go/pkg/ladderdto"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("log init error: %v", err)
	}
	defer obslog.Sync()

	cat, err := msgcat.New(cfg.MsgDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		log.Fatalf("store init error: %v", err)
	}
	defer st.Close()

	svc := ladder.NewService(
		glicko.New(cfg.DefaultRating, cfg.DefaultDeviation, cfg.DefaultVolatility),
		obslog.L(),
	)

	ctx := context.Background()
	saved, err := st.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, cat.Render("state.load_failed", map[string]any{"Err": err}))
		os.Exit(1)
	}
	if saved != nil {
		if err := svc.Restore(saved); err != nil {
			fmt.Fprintln(os.Stderr, cat.Render("state.load_failed", map[string]any{"Err": err}))
			os.Exit(1)
		}
	}

	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage())
		os.Exit(2)
	}

	a := &app{cat: cat, svc: svc}
	changed, err := a.dispatch(strings.ToLower(args[0]), args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	if changed {
		if err := st.Save(ctx, svc.Snapshot()); err != nil {
			obslog.L().Error("state save failed", zap.Error(err))
			fmt.Fprintln(os.Stderr, cat.Render("state.save_failed", map[string]any{"Err": err}))
			os.Exit(1)
		}
	}
}

type app struct {
	cat *msgcat.Catalog
	svc *ladder.Service
}

// dispatch runs one subcommand and reports whether state must be saved back.
func (a *app) dispatch(cmd string, args []string) (bool, error) {
	switch cmd {
	case "add":
		return a.cmdAdd(args)
	case "match":
		return a.cmdMatch(args)
	case "update":
		return a.cmdUpdate()
	case "rank":
		return false, a.cmdRank(args)
	case "history":
		return false, a.cmdHistory(args)
	case "show":
		return false, a.cmdShow(args)
	case "export":
		return false, a.cmdExport(args)
	case "chart":
		return false, a.cmdChart(args)
	case "help":
		fmt.Print(usage())
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %q\n\n%s", cmd, usage())
	}
}

func (a *app) cmdAdd(args []string) (bool, error) {
	if len(args) < 1 || len(args) > 4 {
		return false, errors.New("usage: ladder add <name> [rating [rd [vol]]]")
	}
	name := args[0]

	var seed *glicko.Rating
	if len(args) > 1 {
		s := glicko.Rating{
			Rating:     glicko.DefaultRating,
			Deviation:  glicko.DefaultDeviation,
			Volatility: glicko.DefaultVolatility,
		}
		fields := []*float64{&s.Rating, &s.Deviation, &s.Volatility}
		for i, raw := range args[1:] {
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return false, fmt.Errorf("invalid seed value %q", raw)
			}
			*fields[i] = f
		}
		seed = &s
	}

	p, err := a.svc.Register(name, seed)
	switch {
	case errors.Is(err, ladder.ErrInvalidName):
		return false, errors.New(a.cat.Render("player.invalid_name", nil))
	case errors.Is(err, ladder.ErrDuplicateName):
		return false, errors.New(a.cat.Render("player.exists", map[string]any{"Name": name}))
	case err != nil:
		return false, err
	}

	fmt.Println(a.cat.Render("player.added", map[string]any{
		"Name": p.Name, "Rating": p.Rating, "Deviation": p.Deviation, "Volatility": p.Volatility,
	}))
	return true, nil
}

func (a *app) cmdMatch(args []string) (bool, error) {
	if len(args) != 3 {
		return false, errors.New("usage: ladder match <playerA> <playerB> <1|0.5|0|draw>")
	}
	nameA, nameB := args[0], args[1]

	outcome, ok := parseOutcome(args[2])
	if !ok {
		return false, errors.New(a.cat.Render("match.invalid_outcome", nil))
	}

	rec, err := a.svc.RecordMatch(nameA, nameB, outcome)
	switch {
	case errors.Is(err, ladder.ErrSamePlayer):
		return false, errors.New(a.cat.Render("match.same_player", nil))
	case errors.Is(err, ladder.ErrInvalidOutcome):
		return false, errors.New(a.cat.Render("match.invalid_outcome", nil))
	case errors.Is(err, ladder.ErrPlayerNotFound):
		return false, errors.New(a.cat.Render("player.not_found", map[string]any{"Name": missingName(a.svc, nameA, nameB)}))
	case err != nil:
		return false, err
	}

	fmt.Println(a.cat.Render("match.recorded", map[string]any{
		"Seq": rec.Seq, "PlayerA": rec.PlayerA, "PlayerB": rec.PlayerB,
		"Result": a.resultText(rec.PlayerA, rec.PlayerB, rec.Outcome),
	}))
	return true, nil
}

func (a *app) cmdUpdate() (bool, error) {
	if err := a.svc.UpdateAll(); err != nil {
		obslog.L().Error("rating update aborted", zap.Error(err))
		return false, errors.New(a.cat.Render("update.failed", nil))
	}
	fmt.Println(a.cat.Render("update.done", map[string]any{
		"Cycle":   a.svc.Cycle(),
		"Players": len(a.svc.Snapshot().Players),
	}))
	return true, nil
}

func (a *app) cmdRank(args []string) error {
	criterion := ""
	if len(args) > 0 {
		criterion = args[0]
	}
	rows, err := a.rank(criterion)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println(a.cat.Render("rank.empty", nil))
		return nil
	}
	fmt.Println(a.cat.Render("rank.header", nil))
	for _, row := range rows {
		fmt.Printf("%-3d%-22s%8.2f%8.2f%8.5f %3d/%d/%d %6.2f%%\n",
			row.Rank, row.Name, row.Rating, row.Deviation, row.Volatility,
			row.Wins, row.Losses, row.Draws, row.WinPct*100)
	}
	return nil
}

func (a *app) cmdHistory(args []string) error {
	limit := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return errors.New("usage: ladder history [limit]")
		}
		limit = n
	}

	matches := a.svc.Matches()
	if len(matches) == 0 {
		fmt.Println(a.cat.Render("history.empty", nil))
		return nil
	}
	if limit > 0 && len(matches) > limit {
		matches = matches[len(matches)-limit:]
	}
	for _, m := range matches {
		fmt.Println(a.cat.Render("history.entry", map[string]any{
			"When":    m.PlayedAt.Format("2006-01-02 15:04:05"),
			"Seq":     m.Seq,
			"PlayerA": m.PlayerA,
			"PlayerB": m.PlayerB,
			"Result":  a.resultText(m.PlayerA, m.PlayerB, m.Outcome),
		}))
	}
	return nil
}

func (a *app) cmdShow(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: ladder show <name>")
	}
	p, err := a.svc.Lookup(args[0])
	if errors.Is(err, ladder.ErrPlayerNotFound) {
		return errors.New(a.cat.Render("player.not_found", map[string]any{"Name": args[0]}))
	}
	if err != nil {
		return err
	}
	fmt.Println(a.cat.Render("player.show", map[string]any{
		"Name": p.Name, "Rating": p.Rating, "Deviation": p.Deviation,
		"Volatility": p.Volatility, "Wins": p.Wins, "Losses": p.Losses,
		"Draws": p.Draws, "PendingCount": len(p.Pending),
	}))
	return nil
}

func (a *app) cmdExport(args []string) error {
	path := "rankings.csv"
	criterion := ""
	if len(args) > 0 {
		path = args[0]
	}
	if len(args) > 1 {
		criterion = args[1]
	}

	c, err := ladder.ParseCriterion(criterion)
	if err != nil {
		return errors.New(a.cat.Render("rank.bad_criterion", map[string]any{"Criterion": criterion}))
	}
	seq, err := a.svc.Rank(c)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := export.RankingCSV(f, seq); err != nil {
		return err
	}
	fmt.Println(a.cat.Render("export.done", map[string]any{"Path": path}))
	return nil
}

func (a *app) cmdChart(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: ladder chart <name> [file.png]")
	}
	name := args[0]
	p, err := a.svc.Lookup(name)
	if errors.Is(err, ladder.ErrPlayerNotFound) {
		return errors.New(a.cat.Render("player.not_found", map[string]any{"Name": name}))
	}
	if err != nil {
		return err
	}

	raw, err := chart.RenderPNG(p.Name, p.History)
	if errors.Is(err, chart.ErrNoHistory) {
		return errors.New(a.cat.Render("chart.no_history", map[string]any{"Name": p.Name}))
	}
	if err != nil {
		return err
	}

	path := fmt.Sprintf("rating_%s.png", strings.ReplaceAll(p.Name, " ", "_"))
	if len(args) == 2 {
		path = args[1]
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Println(a.cat.Render("chart.done", map[string]any{"Name": p.Name, "Path": path}))
	return nil
}

func (a *app) rank(criterion string) ([]ladderdto.RankRow, error) {
	c, err := ladder.ParseCriterion(criterion)
	if err != nil {
		return nil, errors.New(a.cat.Render("rank.bad_criterion", map[string]any{"Criterion": criterion}))
	}
	seq, err := a.svc.Rank(c)
	if err != nil {
		return nil, err
	}
	var rows []ladderdto.RankRow
	for row := range seq {
		rows = append(rows, row)
	}
	return rows, nil
}

func (a *app) resultText(playerA, playerB string, outcome float64) string {
	data := map[string]any{"PlayerA": playerA, "PlayerB": playerB}
	switch outcome {
	case 1:
		return a.cat.Render("match.result_win_a", data)
	case 0:
		return a.cat.Render("match.result_win_b", data)
	default:
		return a.cat.Render("match.result_draw", data)
	}
}

// missingName reports which of the two participants is unregistered.
func missingName(svc *ladder.Service, nameA, nameB string) string {
	if _, err := svc.Lookup(nameA); err != nil {
		return nameA
	}
	return nameB
}

func parseOutcome(s string) (ladder.Outcome, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "draw", "d":
		return ladder.Draw, true
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	// Out-of-set values still flow to the recorder, which rejects them.
	return ladder.Outcome(f), true
}

func usage() string {
	return strings.Join([]string{
		"ladder - Glicko-2 rating tracker",
		"",
		"Usage:",
		"  ladder add <name> [rating [rd [vol]]]   register a player",
		"  ladder match <a> <b> <1|0.5|0|draw>     record a match (outcome is for <a>)",
		"  ladder update                           commit one rating period",
		"  ladder rank [rating|winpct|games]       show rankings",
		"  ladder history [limit]                  show recorded matches",
		"  ladder show <name>                      show one player",
		"  ladder export [file.csv] [criterion]    export rankings as CSV",
		"  ladder chart <name> [file.png]          render a rating-history chart",
		"",
		"State is kept in " + appcfg.StoreFile + "/" + appcfg.StoreRedis + "/" + appcfg.StorePostgres +
			" backends selected via LADDER_STORE.",
	}, "\n") + "\n"
}
