// Command freetime-sim posts a sample free-time query to a running
// freetime-service and prints the returned slots. Profiles come from a
// JSON file ({"profiles": [{"id": ..., "events": [{"start": "HH:MM",
// "end": "HH:MM"}, ...]}, ...]}) or from a built-in two-person sample.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

type rawEvent struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type profile struct {
	ID     string     `json:"id"`
	Events []rawEvent `json:"events"`
}

type profilesFile struct {
	Profiles []profile `json:"profiles"`
}

func main() {
	var (
		baseURL         = flag.String("base-url", getenv("BASE_URL", "http://localhost:8080"), "freetime-service base url")
		file            = flag.String("file", "", "path to a profiles JSON file (optional)")
		date            = flag.String("date", time.Now().UTC().Format("2006-01-02"), "calendar date (YYYY-MM-DD)")
		windowStart     = flag.String("window-start", "00:00", "window start (HH:MM)")
		windowEnd       = flag.String("window-end", "23:59", "window end (HH:MM)")
		acceptableStart = flag.String("acceptable-start", "", "acceptable range start (HH:MM, optional)")
		acceptableEnd   = flag.String("acceptable-end", "", "acceptable range end (HH:MM, optional)")
		durationMins    = flag.Int("duration-minutes", 0, "meeting length for candidate starts (optional)")
	)
	flag.Parse()

	profiles := sampleProfiles()
	if strings.TrimSpace(*file) != "" {
		loaded, err := loadProfiles(*file)
		if err != nil {
			fatal(err.Error())
		}
		profiles = loaded
	}

	reqBody := map[string]any{
		"date":     *date,
		"window":   map[string]string{"start": *windowStart, "end": *windowEnd},
		"profiles": profiles,
	}
	if *acceptableStart != "" && *acceptableEnd != "" {
		reqBody["acceptable"] = map[string]string{"start": *acceptableStart, "end": *acceptableEnd}
	}
	if *durationMins > 0 {
		reqBody["duration_minutes"] = *durationMins
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		fatal(err.Error())
	}

	resp, err := http.Post(
		strings.TrimRight(*baseURL, "/")+"/api/v1/free-time/preview",
		"application/json",
		bytes.NewReader(payload),
	)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fatal(err.Error())
	}
	if resp.StatusCode != http.StatusOK {
		fatal(fmt.Sprintf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var result struct {
		Free []struct {
			Start string `json:"start"`
			End   string `json:"end"`
		} `json:"free"`
		MeetingStarts []string `json:"meeting_starts"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		fatal(err.Error())
	}

	if len(result.Free) == 0 {
		fmt.Println("no common free time")
		return
	}
	for _, f := range result.Free {
		fmt.Printf("free: %s -> %s\n", f.Start, f.End)
	}
	for _, s := range result.MeetingStarts {
		fmt.Printf("candidate start: %s\n", s)
	}
}

func loadProfiles(path string) ([]profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pf profilesFile
	if err := json.Unmarshal(raw, &pf); err != nil {
		return nil, err
	}
	if len(pf.Profiles) == 0 {
		// Also accept a bare array of profiles.
		var list []profile
		if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
			return list, nil
		}
	}
	return pf.Profiles, nil
}

func sampleProfiles() []profile {
	return []profile{
		{ID: "Alice", Events: []rawEvent{
			{Start: "12:00", End: "13:00"},
			{Start: "14:00", End: "15:00"},
		}},
		{ID: "Bob", Events: []rawEvent{
			{Start: "09:00", End: "13:00"},
		}},
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, "error: "+msg)
	os.Exit(1)
}
