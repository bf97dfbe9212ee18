// Package alpha imports workout history from Alpha Progression CSV exports.
package alpha

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Session is one workout in an export.
type Session struct {
	Name      string
	Start     time.Time
	Duration  time.Duration
	Exercises []Exercise
}

// Exercise is one exercise block within a session.
type Exercise struct {
	Position   int
	Name       string
	Equipment  string
	TargetReps int
	Sets       []Set
}

// Set is a logged set. Weight is the added load for bodyweight-plus sets.
type Set struct {
	Number         int
	Weight         float64
	BodyweightPlus bool
	Reps           int
	RIR            *float64
	Warmup         bool
}

var (
	// "Legs · Day 2";"2026-02-19 4:54 h";"1:02 hr"
	sessionHeaderRe = regexp.MustCompile(`^"(.+)";"(\d{4}-\d{2}-\d{2}\s+\d+:\d+)\s+h";"(.+)"$`)

	// "1. Hack Squats · Machine · 8 reps[· modifiers]"[;"warm-ups"]
	exerciseHeaderRe = regexp.MustCompile(`^"(\d+)\.\s+(.+?)(?:\s+·\s+(\S.*?))?\s+·\s+(\d+)\s+reps(.*?)"(?:;"(.+)")?$`)

	// 1;115;8;1
	setRowRe = regexp.MustCompile(`^(\d+);(.+);(\d+);(.*)$`)

	// WU1 · 37,5 kg · 9 reps
	warmupRe = regexp.MustCompile(`WU(\d+)\s+·\s+(.+?)\s+kg\s+·\s+(\d+)\s+reps`)

	// 1:02 hr, 45 min
	durationRe = regexp.MustCompile(`^(?:(\d+):(\d{2})\s*hr?|(\d+)\s*min)$`)
)

const columnHeader = "#;KG;REPS;RIR"

type parser struct {
	loc      *time.Location
	sessions []Session
	session  *Session
	exercise *Exercise
}

func (p *parser) closeExercise() {
	if p.exercise != nil {
		p.session.Exercises = append(p.session.Exercises, *p.exercise)
		p.exercise = nil
	}
}

func (p *parser) closeSession() {
	if p.session == nil {
		return
	}
	p.closeExercise()
	p.sessions = append(p.sessions, *p.session)
	p.session = nil
}

func (p *parser) line(line string) error {
	switch {
	case line == "":
		// blank lines separate sessions
		p.closeSession()
	case line == columnHeader:
	case sessionHeaderRe.MatchString(line):
		m := sessionHeaderRe.FindStringSubmatch(line)
		p.closeSession()
		start, err := parseStart(m[2], p.loc)
		if err != nil {
			return err
		}
		p.session = &Session{Name: m[1], Start: start, Duration: parseDuration(m[3])}
	case exerciseHeaderRe.MatchString(line):
		m := exerciseHeaderRe.FindStringSubmatch(line)
		if p.session == nil {
			return fmt.Errorf("exercise without session: %q", line)
		}
		p.closeExercise()
		pos, _ := strconv.Atoi(m[1])
		target, _ := strconv.Atoi(m[4])
		p.exercise = &Exercise{
			Position:   pos,
			Name:       strings.TrimSpace(m[2]),
			Equipment:  strings.TrimSpace(m[3]),
			TargetReps: target,
			Sets:       parseWarmups(m[6]),
		}
	case setRowRe.MatchString(line):
		m := setRowRe.FindStringSubmatch(line)
		if p.exercise == nil {
			return fmt.Errorf("set without exercise: %q", line)
		}
		n, _ := strconv.Atoi(m[1])
		reps, _ := strconv.Atoi(m[3])
		w, bw := parseWeight(m[2])
		s := Set{Number: n, Weight: w, BodyweightPlus: bw, Reps: reps}
		if rir, err := parseDecimal(m[4]); err == nil {
			s.RIR = &rir
		}
		p.exercise.Sets = append(p.exercise.Sets, s)
	}
	// Anything else is notes or metadata.
	return nil
}

// Parse reads an export. Session start times carry no zone and are read in loc.
func Parse(r io.Reader, loc *time.Location) ([]Session, error) {
	p := &parser{loc: loc}
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		if err := p.line(strings.TrimSpace(sc.Text())); err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}
	p.closeSession()
	return p.sessions, nil
}

func parseStart(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04", strings.Join(strings.Fields(s), " "), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing session start %q: %w", s, err)
	}
	return t, nil
}

// parseDuration reads "1:02 hr" or "45 min". Unknown formats are zero.
func parseDuration(s string) time.Duration {
	m := durationRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0
	}
	if m[3] != "" {
		mins, _ := strconv.Atoi(m[3])
		return time.Duration(mins) * time.Minute
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	return time.Duration(h)*time.Hour + time.Duration(mins)*time.Minute
}

// parseWarmups reads "WU1 · 37,5 kg · 9 reps<br>WU2 · ...".
func parseWarmups(s string) []Set {
	var sets []Set
	for _, part := range strings.Split(s, "<br>") {
		m := warmupRe.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		reps, _ := strconv.Atoi(m[3])
		w, bw := parseWeight(m[2])
		sets = append(sets, Set{Number: n, Weight: w, BodyweightPlus: bw, Reps: reps, Warmup: true})
	}
	return sets
}

// parseWeight reads "102,5" or the bodyweight-plus form "+35".
func parseWeight(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	bw := strings.HasPrefix(s, "+")
	w, _ := parseDecimal(strings.TrimPrefix(s, "+"))
	return w, bw
}

// parseDecimal accepts a comma as the decimal separator.
func parseDecimal(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
}
