package loadgen

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/iAmLakshya/supabase-query-alert/internal/queryalert/logger"
)

// Stats counts generated records by kind. Audit excludes noise.
type Stats struct {
	Records int
	Audit   int
	ByKind  map[string]int
}

// generator writes records in one format while tracking the session
// statement counter and the synthetic clock.
type generator struct {
	w      *Workload
	faker  *gofakeit.Faker
	out    *bufio.Writer
	now    time.Time
	stmtID int
	stats  Stats
}

// GenerateFile writes the workload to w.Output.
func GenerateFile(w Workload) (Stats, error) {
	f, err := os.Create(w.Output)
	if err != nil {
		return Stats{}, fmt.Errorf("create output: %w", err)
	}
	defer f.Close()
	return Generate(w, f)
}

// Generate writes w.Events records to out. The same seed always yields
// the same file. A burst counts as one event but writes BurstSize
// records from a single user one second apart, enough to trip the volume
// analyzer.
func Generate(w Workload, out io.Writer) (Stats, error) {
	if err := w.normalize(); err != nil {
		return Stats{}, err
	}
	log := logger.L()
	g := &generator{
		w:     &w,
		faker: gofakeit.New(uint64(w.Seed)),
		out:   bufio.NewWriter(out),
		now:   w.Start.UTC(),
		stats: Stats{ByKind: make(map[string]int)},
	}

	for i := 0; i < w.Events; i++ {
		kind := w.pickKind(g.faker.Float64())
		var err error
		switch kind {
		case KindBurst:
			err = g.burst()
		case KindNoise:
			err = g.noise()
		default:
			user := g.faker.RandomString(w.Users)
			err = g.audit(user, g.statementFor(kind), g.faker.Number(1000, 99999))
		}
		if err != nil {
			return g.stats, err
		}
		g.now = g.now.Add(w.Interval)
	}
	if err := g.out.Flush(); err != nil {
		return g.stats, fmt.Errorf("flush output: %w", err)
	}

	log.Infow("generated workload",
		"format", w.Format,
		"records", g.stats.Records,
		"audit", g.stats.Audit,
		"by_kind", g.stats.ByKind)
	return g.stats, nil
}

func (g *generator) statementFor(kind string) statement {
	switch kind {
	case KindInjection:
		return injectionStatement(g.faker)
	case KindExfiltration:
		return exfiltrationStatement(g.faker)
	default:
		return benignStatement(g.faker)
	}
}

func (g *generator) burst() error {
	user := g.faker.RandomString(g.w.Users)
	pid := g.faker.Number(1000, 99999)
	for i := 0; i < g.w.BurstSize; i++ {
		st := benignStatement(g.faker)
		st.Kind = KindBurst
		if err := g.audit(user, st, pid); err != nil {
			return err
		}
		g.now = g.now.Add(time.Second)
	}
	return nil
}

func (g *generator) audit(user string, st statement, pid int) error {
	g.stmtID++
	objType := ""
	if st.Object != "" {
		objType = "TABLE"
	}
	msg := fmt.Sprintf("AUDIT: SESSION,%d,1,%s,%s,%s,%s,%s",
		g.stmtID, st.Class, st.Command, objType, st.Object, st.SQL)
	g.stats.Audit++
	g.stats.ByKind[st.Kind]++
	return g.write(user, pid, "LOG", msg)
}

func (g *generator) noise() error {
	g.stats.ByKind[KindNoise]++
	return g.write("postgres", g.faker.Number(1000, 99999), "LOG", g.faker.RandomString(NoiseMessages))
}

func (g *generator) write(user string, pid int, level, msg string) error {
	g.stats.Records++
	switch g.w.Format {
	case FormatJSON:
		row := map[string]any{
			"event_message": msg,
			"timestamp":     g.now.UnixMicro(),
			"parsed": map[string]any{
				"user_name":      user,
				"database_name":  g.w.Database,
				"session_id":     fmt.Sprint(pid),
				"error_severity": level,
			},
		}
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encode row: %w", err)
		}
		data = append(data, '\n')
		_, err = g.out.Write(data)
		return err
	default:
		_, err := fmt.Fprintf(g.out, "%s UTC:%s(%d):%s@%s:[%d]: %s: %s\n",
			g.now.Format("2006-01-02 15:04:05"),
			g.faker.IPv4Address(), g.faker.Number(1024, 65535),
			user, g.w.Database, pid, level, msg)
		return err
	}
}
