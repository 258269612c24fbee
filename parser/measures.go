package parser

import "scorelang/ast"

// partitionMeasures splits a stave body's flat element list into measures
// bounded by the active time signature's capacity in ticks. A single
// element is never split across measures; a measure closes as soon as it
// would overflow, or exactly fills, capacity.
func partitionMeasures(elements []ast.Element, time ast.TimeSignature) []ast.Measure {
	capacity := time.MeasureCapacityTicks()

	var measures []ast.Measure
	var cur []ast.Element
	accumulated := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		measures = append(measures, ast.Measure{
			Loc:      ast.Span(cur[0].Location(), cur[len(cur)-1].Location()),
			Elements: cur,
			Barline:  ast.BarlineNormal,
		})
		cur = nil
		accumulated = 0
	}

	for _, e := range elements {
		beats := e.GetDuration().Ticks()
		if accumulated+beats > capacity && len(cur) > 0 {
			flush()
		}
		cur = append(cur, e)
		accumulated += beats
		if accumulated == capacity {
			flush()
		}
	}
	flush()

	if len(measures) == 0 {
		measures = append(measures, ast.Measure{Barline: ast.BarlineNormal})
	}
	return measures
}
