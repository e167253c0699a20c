// Package wsapi is the websocket wire protocol: request/response JSON
// shapes, note-to-measure grouping, and the connection handler. Grounded
// on server.py's echo handler. See spec.md §6.
package wsapi

// Note is one melody note as the client sends it: an absolute MIDI pitch
// and a time span in the same measure-relative units as ChordLength.
type Note struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Pitch int     `json:"pitch"`
}

// Music wraps the note list, matching the client's nested "music" object.
type Music struct {
	Notes []Note `json:"notes"`
}

// Constraint pins a chord slot's time boundary and, optionally, its value.
type Constraint struct {
	Time   float64 `json:"time"`
	Value  string  `json:"value"`
	Locked bool    `json:"locked"`
}

// Request is one harmonization request.
type Request struct {
	Seq               int          `json:"seq"`
	Music             Music        `json:"music"`
	ChordLength       float64      `json:"chordLength"`
	KeySignature      int          `json:"keySignature"`
	Mode              string       `json:"mode"`
	Minorness         float64      `json:"minorness"`
	Jazziness         float64      `json:"jazziness"`
	FirstWeight       float64      `json:"firstWeight"`
	DeterminismWeight float64      `json:"determinismWeight"`
	Seed              *int64       `json:"seed"`
	BottomBass        int          `json:"bottomBass"`
	Tolerance         float64      `json:"tolerance"`
	Constraints       []Constraint `json:"constraints"`
	Preserve          bool         `json:"preserve"`
}

// ProductionChord is a chord rendered for the client: its display name,
// its rescored likelihood, its absolute wire value, and the MIDI notes to
// sound it with.
type ProductionChord struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
	Value string  `json:"value"`
	Midis []int   `json:"midis"`
}

// SlotResponse is one measure's worth of result.
type SlotResponse struct {
	Time            float64           `json:"time"`
	Value           ProductionChord   `json:"value"`
	Suggestion      *ProductionChord  `json:"suggestion"`
	Locked          bool              `json:"locked"`
	Recommendations []ProductionChord `json:"recommendations"`
}

// Response is the full harmonization result sent back to the client.
type Response struct {
	Seq       int               `json:"seq"`
	AllChords []ProductionChord `json:"allChords"`
	Result    []SlotResponse    `json:"result"`
}

// ErrorResponse is sent in place of Response when a request fails.
type ErrorResponse struct {
	Error string `json:"error"`
}
