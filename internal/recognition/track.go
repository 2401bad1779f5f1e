package recognition

import (
	"fmt"
	"sync"
	"time"
)

// MinIoU is the overlap an observation needs to continue a track.
const MinIoU = 0.3

// Track is one face followed across observations from a device.
type Track struct {
	ID              string
	BBox            [4]float32
	Confidence      float32
	Hits            int       // number of observations assigned to the track
	TimeSinceUpdate int       // observations since the track was last hit
	LastMatched     time.Time // zero until the track has been scored
	SuspectID       string
	SuspectName     string
	MatchScore      float64
}

// Detection is a face bounding box fed to the tracker.
type Detection struct {
	BBox       [4]float32
	Confidence float32
}

// TrackUpdate carries a snapshot of the track taken during Update.
type TrackUpdate struct {
	Track Track
	IsNew bool
}

// Tracker implements a simple SORT-like face tracker for one device.
type Tracker struct {
	mu       sync.Mutex
	tracks   map[string]*Track
	nextID   int
	maxAge   int // max observations without a hit before a track is removed
	minHits  int // min hits before a track is matched
	deviceID string
}

func NewTracker(deviceID string, maxAge, minHits int) *Tracker {
	return &Tracker{
		tracks:   make(map[string]*Track),
		maxAge:   maxAge,
		minHits:  minHits,
		deviceID: deviceID,
	}
}

// Update assigns detections to existing tracks by IoU and opens tracks for
// the rest.
func (t *Tracker) Update(detections []Detection) []TrackUpdate {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, track := range t.tracks {
		track.TimeSinceUpdate++
	}

	updates := make([]TrackUpdate, 0, len(detections))
	matched := make(map[string]bool)
	detMatched := make(map[int]bool)

	for di, det := range detections {
		bestIoU := float32(MinIoU)
		bestTrack := ""

		for id, tr := range t.tracks {
			if matched[id] {
				continue
			}
			if v := IoU(det.BBox, tr.BBox); v > bestIoU {
				bestIoU = v
				bestTrack = id
			}
		}

		if bestTrack == "" {
			continue
		}
		tr := t.tracks[bestTrack]
		tr.BBox = det.BBox
		tr.Confidence = det.Confidence
		tr.Hits++
		tr.TimeSinceUpdate = 0
		matched[bestTrack] = true
		detMatched[di] = true

		updates = append(updates, TrackUpdate{Track: *tr})
	}

	for di, det := range detections {
		if detMatched[di] {
			continue
		}

		t.nextID++
		tr := &Track{
			ID:         fmt.Sprintf("%s_%d", t.deviceID, t.nextID),
			BBox:       det.BBox,
			Confidence: det.Confidence,
			Hits:       1,
		}
		t.tracks[tr.ID] = tr

		updates = append(updates, TrackUpdate{Track: *tr, IsNew: true})
	}

	for id, tr := range t.tracks {
		if tr.TimeSinceUpdate > t.maxAge {
			delete(t.tracks, id)
		}
	}

	return updates
}

// ShouldRematch reports whether the track is due to be scored against the
// suspect list at now.
func (t *Tracker) ShouldRematch(track Track, interval time.Duration, now time.Time) bool {
	if track.Hits < t.minHits {
		return false
	}
	if track.LastMatched.IsZero() {
		return true
	}
	return now.Sub(track.LastMatched) >= interval
}

// RecordMatch stores the outcome of scoring a track. suspectID is empty when
// nothing passed the threshold. Unknown track IDs are ignored.
func (t *Tracker) RecordMatch(trackID, suspectID, name string, score float64, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tr, ok := t.tracks[trackID]
	if !ok {
		return
	}
	tr.LastMatched = now
	tr.SuspectID = suspectID
	tr.SuspectName = name
	tr.MatchScore = score
}

// TrackCount returns the number of active tracks.
func (t *Tracker) TrackCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tracks)
}

// IoU is the intersection over union of two [x1, y1, x2, y2] boxes.
func IoU(a, b [4]float32) float32 {
	x1 := max(a[0], b[0])
	y1 := max(a[1], b[1])
	x2 := min(a[2], b[2])
	y2 := min(a[3], b[3])

	if x2 <= x1 || y2 <= y1 {
		return 0
	}
	inter := (x2 - x1) * (y2 - y1)
	union := (a[2]-a[0])*(a[3]-a[1]) + (b[2]-b[0])*(b[3]-b[1]) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Trackers holds one Tracker per device.
type Trackers struct {
	mu      sync.Mutex
	byID    map[string]*deviceTracker
	maxAge  int
	minHits int
}

type deviceTracker struct {
	tracker  *Tracker
	lastSeen time.Time
}

func NewTrackers(maxAge, minHits int) *Trackers {
	return &Trackers{byID: make(map[string]*deviceTracker), maxAge: maxAge, minHits: minHits}
}

// Get returns the tracker for deviceID, creating it on first use, and marks
// the device as seen at now.
func (ts *Trackers) Get(deviceID string, now time.Time) *Tracker {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if d, ok := ts.byID[deviceID]; ok {
		d.lastSeen = now
		return d.tracker
	}
	t := NewTracker(deviceID, ts.maxAge, ts.minHits)
	ts.byID[deviceID] = &deviceTracker{tracker: t, lastSeen: now}
	return t
}

// Prune drops trackers of devices not seen for longer than idle and returns
// how many were removed.
func (ts *Trackers) Prune(now time.Time, idle time.Duration) int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	removed := 0
	for id, d := range ts.byID {
		if now.Sub(d.lastSeen) > idle {
			delete(ts.byID, id)
			removed++
		}
	}
	return removed
}

func (ts *Trackers) Len() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.byID)
}
