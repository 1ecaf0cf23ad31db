// Package stats builds the rolling one-hour health view: sixty one-minute
// buckets ending at the current minute, each classified by color and
// intensity relative to the busiest bucket.
package stats

import (
	"math"
	"strconv"
	"time"

	"github.com/mohans/arqmon/arqmon"
)

type Color string

const (
	ColorGray   Color = "gray"
	ColorGreen  Color = "green"
	ColorRed    Color = "red"
	ColorOrange Color = "orange"
)

// WindowMinutes is the number of buckets in the window.
const WindowMinutes = 60

type TimeBucket struct {
	Date                  time.Time `json:"date"`
	Created               int       `json:"total_created"`
	CompletedSuccessfully int       `json:"total_completed_successfully"`
	Failed                int       `json:"total_failed"`
	InProgress            int       `json:"total_in_progress"`
	Color                 Color     `json:"color"`
	ColorIntensity        float64   `json:"color_intensity"`
}

// Generate counts jobs into the window of WindowMinutes buckets that ends
// at now truncated to the minute. Bucket i covers [start+i min, start+i+1 min).
func Generate(jobs []*arqmon.JobRecord, now time.Time) []TimeBucket {
	start := now.Truncate(time.Minute).Add(-WindowMinutes * time.Minute)
	current := minuteIndex(start, now)

	buckets := make([]TimeBucket, WindowMinutes)
	for i := range buckets {
		buckets[i].Date = start.Add(time.Duration(i) * time.Minute)
	}

	for _, job := range jobs {
		if c := minuteIndex(start, job.EnqueueTime); inWindow(c) {
			buckets[c].Created++
		}
		switch {
		case job.Status == arqmon.StatusInProgress && job.StartTime != nil:
			markInProgress(buckets, minuteIndex(start, *job.StartTime), current)
		case job.Status == arqmon.StatusComplete && job.StartTime != nil && job.FinishTime != nil:
			f := minuteIndex(start, *job.FinishTime)
			markInProgress(buckets, minuteIndex(start, *job.StartTime), f)
			if inWindow(f) {
				if job.Success {
					buckets[f].CompletedSuccessfully++
				} else {
					buckets[f].Failed++
				}
			}
		}
	}

	classify(buckets)
	return buckets
}

// minuteIndex is the floored number of whole minutes from start to t.
func minuteIndex(start, t time.Time) int {
	return int(math.Floor(t.Sub(start).Minutes()))
}

func inWindow(i int) bool { return i >= 0 && i < WindowMinutes }

// markInProgress increments buckets from..to inclusive, clipped to the window.
func markInProgress(buckets []TimeBucket, from, to int) {
	from = max(from, 0)
	to = min(to, WindowMinutes-1)
	for i := from; i <= to; i++ {
		buckets[i].InProgress++
	}
}

func classify(buckets []TimeBucket) {
	maxJobs := 0
	for _, b := range buckets {
		maxJobs = max(maxJobs, b.CompletedSuccessfully+b.InProgress)
	}
	for i := range buckets {
		b := &buckets[i]
		raw := 1.0
		if maxJobs > 0 {
			raw = roundTenth(float64(b.CompletedSuccessfully+b.InProgress) / float64(maxJobs))
		}
		b.ColorIntensity = AdjustIntensity(raw)

		switch {
		case b.CompletedSuccessfully == 0 && b.Failed == 0:
			b.Color = ColorGray
			b.ColorIntensity = 1.0
		case b.Failed == 0:
			b.Color = ColorGreen
		case b.CompletedSuccessfully == 0:
			b.Color = ColorRed
		default:
			b.Color = ColorOrange
		}
	}
}

// roundTenth rounds to one decimal place from the exact binary value, so
// 7/20 (0.34999...) becomes 0.3 rather than 0.4.
func roundTenth(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 1, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// AdjustIntensity quantizes a [0,1] ratio to 0.3, 0.5, 0.7 or 1.0.
func AdjustIntensity(v float64) float64 {
	switch {
	case v < 0.4:
		return 0.3
	case v < 0.6:
		return 0.5
	case v < 0.8:
		return 0.7
	}
	return 1.0
}
