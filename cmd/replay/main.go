// Command replay plays back a tile-edit audit trail onto an initially
// empty in-memory grid, rendering each step in a terminal viewport so
// an operator can scrub through editing history.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/klauspost/compress/zstd"
)

// auditEntry mirrors telemetry.AuditEntry's wire shape without
// importing the telemetry package, just for this one struct.
type auditEntry struct {
	Timestamp string `json:"ts"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Index     int    `json:"index"`
}

func main() {
	var (
		auditDir = flag.String("audit", "", "directory containing audit-*.jsonl.zst files")
		originX  = flag.Int("origin_x", 0, "world tile X shown at the viewport's left edge")
		originY  = flag.Int("origin_y", 0, "world tile Y shown at the viewport's top edge")
	)
	flag.Parse()

	if *auditDir == "" {
		fmt.Fprintln(os.Stderr, "missing -audit")
		os.Exit(2)
	}

	entries, err := loadEntries(*auditDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load audit entries:", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no audit entries found in", *auditDir)
		os.Exit(1)
	}

	if err := run(entries, *originX, *originY); err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
}

func loadEntries(dir string) ([]auditEntry, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range ents {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, "audit-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var out []auditEntry
	for _, name := range names {
		chunk, err := readEntries(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, chunk...)
	}
	return out, nil
}

func readEntries(path string) ([]auditEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []auditEntry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var e auditEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("unmarshal: %w", err)
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

// run steps through entries one at a time, applying each to an
// in-memory tile grid and redrawing the viewport; Right/Left step
// forward/back, q or Esc quits.
func run(entries []auditEntry, originX, originY int) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	cursor := 0
	grid := make(map[[2]int]int)
	applyUpTo := func(n int) {
		grid = make(map[[2]int]int)
		for i := 0; i < n; i++ {
			e := entries[i]
			grid[[2]int{e.X, e.Y}] = e.Index
		}
	}
	applyUpTo(cursor)

	for {
		draw(screen, entries, cursor, grid, originX, originY)
		ev := screen.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyEscape || ev.Rune() == 'q':
				return nil
			case ev.Key() == tcell.KeyRight:
				if cursor < len(entries) {
					cursor++
					applyUpTo(cursor)
				}
			case ev.Key() == tcell.KeyLeft:
				if cursor > 0 {
					cursor--
					applyUpTo(cursor)
				}
			}
		case *tcell.EventResize:
			screen.Sync()
		}
	}
}

func draw(screen tcell.Screen, entries []auditEntry, cursor int, grid map[[2]int]int, originX, originY int) {
	screen.Clear()
	w, h := screen.Size()

	header := fmt.Sprintf("step %d/%d  (arrows to scrub, q to quit)", cursor, len(entries))
	for i, r := range header {
		if i >= w {
			break
		}
		screen.SetContent(i, 0, r, nil, tcell.StyleDefault.Bold(true))
	}

	for row := 1; row < h; row++ {
		worldY := originY + row - 1
		for col := 0; col < w; col++ {
			worldX := originX + col
			style := tcell.StyleDefault
			r := '.'
			if idx, ok := grid[[2]int{worldX, worldY}]; ok {
				r = glyphFor(idx)
				style = style.Foreground(tcell.ColorGreen)
			}
			screen.SetContent(col, row, r, nil, style)
		}
	}
	screen.Show()
}

func glyphFor(index int) rune {
	const glyphs = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	if index < 0 {
		return '?'
	}
	return rune(glyphs[index%len(glyphs)])
}
