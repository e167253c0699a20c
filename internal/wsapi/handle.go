package wsapi

import (
	"fmt"

	"github.com/aftertouch/harmonia/internal/hmm"
	"github.com/aftertouch/harmonia/internal/modelset"
)

// defaultNumberOfRecommendations is spec.md §4's K default; the wire
// protocol doesn't expose it as a per-request knob.
const defaultNumberOfRecommendations = 10

// Handle runs one harmonization request against ms and produces the wire
// response, mirroring server.py's echo handler body (everything between
// parsing the incoming JSON and sending the outgoing JSON).
func Handle(ms modelset.ModelSet, req Request) (Response, error) {
	grouped, constraints, preserve, err := BuildMeasures(req.Music.Notes, req.Constraints, req.ChordLength, req.Tolerance, req.KeySignature, req.Preserve)
	if err != nil {
		return Response{}, err
	}
	if len(grouped) != len(constraints) {
		return Response{}, fmt.Errorf("wsapi: grouped %d measures for %d constraints", len(grouped), len(constraints))
	}

	locked, preserved, err := ResolveConstraints(constraints, req.KeySignature, preserve)
	if err != nil {
		return Response{}, err
	}

	weighted := modelset.SelectWeighted(ms, req.Mode, req.Minorness)

	opts := hmm.Options{
		NumberOfRecommendations: defaultNumberOfRecommendations,
		Jazziness:               req.Jazziness,
		FirstNoteWeight:         req.FirstWeight,
		Seed:                    req.Seed,
		DeterminismWeight:       req.DeterminismWeight,
	}
	results, err := hmm.Predict(weighted, grouped, locked, preserved, opts)
	if err != nil {
		return Response{}, err
	}

	resp := Response{
		Seq:       req.Seq,
		AllChords: make([]ProductionChord, len(ms.AllChords)),
		Result:    make([]SlotResponse, len(results)),
	}
	for i, c := range ms.AllChords {
		resp.AllChords[i] = productionize(c, req.KeySignature, 0, req.BottomBass)
	}
	for i, r := range results {
		slot := SlotResponse{
			Time:   constraints[i].Time,
			Value:  productionize(r.Chosen.Chord, req.KeySignature, r.Chosen.Score, req.BottomBass),
			Locked: locked[i] != nil,
		}
		if r.Suggested != nil {
			s := productionize(r.Suggested.Chord, req.KeySignature, r.Suggested.Score, req.BottomBass)
			slot.Suggestion = &s
		}
		slot.Recommendations = make([]ProductionChord, len(r.Recommendations))
		for j, rc := range r.Recommendations {
			slot.Recommendations[j] = productionize(rc.Chord, req.KeySignature, rc.Score, req.BottomBass)
		}
		resp.Result[i] = slot
	}
	return resp, nil
}
