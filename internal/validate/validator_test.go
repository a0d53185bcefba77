package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// richDocument exercises every indicator of the default rubric.
func richDocument() string {
	var filler strings.Builder
	for i := 0; i < 40; i++ {
		filler.WriteString("<section aria-label=\"block\"><p>entry entry entry entry entry</p></section>\n")
	}
	return `<!DOCTYPE html>
<html lang="en">
<head>
<title>Cardio Tracker</title>
<style>
:root { --accent: #e33; --bg: linear-gradient(180deg, #111, #333); }
main { transition: opacity .2s; }
@keyframes pulse { from { opacity: 1 } to { opacity: .6 } }
@media (max-width: 600px) { main { padding: 0 } }
</style>
</head>
<body>
<header><nav>menu</nav></header>
<main role="main">
<input placeholder="distance (km)">
<button onclick="add()">Add ▶</button>
<canvas id="chart"></canvas>
` + filler.String() + `
</main>
<footer>☺</footer>
<script>
function add() {
  try {
    const runs = JSON.parse(localStorage.getItem("runs") || "[]");
    runs.push(Date.now());
    localStorage.setItem("runs", JSON.stringify(runs));
  } catch (err) {
    console.error(err);
  }
}
document.addEventListener("keydown", add);
</script>
</body>
</html>`
}

func TestValidateIsPure(t *testing.T) {
	v := New()
	doc := richDocument()
	assert.Equal(t, v.Validate(doc), v.Validate(doc))
}

func TestRichDocumentScoresHigh(t *testing.T) {
	score := New().Validate(richDocument())
	assert.Contains(t, []Grade{GradeS, GradeA}, score.Grade)
	assert.Empty(t, score.Issues)
}

func TestSkeletonDocumentScoresLow(t *testing.T) {
	score := New().Validate("<html></html>")
	assert.Contains(t, []Grade{GradeC, GradeD}, score.Grade)
	assert.NotEmpty(t, score.Issues)
}

func TestTotalIsAxisMean(t *testing.T) {
	score := New().Validate(richDocument())
	mean := (score.Conatus + score.Ratio + score.Laetitia + score.Natura) / 4
	assert.InDelta(t, mean, score.Total, 1e-9)
}

func TestGradeBoundaries(t *testing.T) {
	tests := []struct {
		total float64
		grade Grade
	}{
		{0.85, GradeS}, {0.849, GradeA},
		{0.70, GradeA}, {0.699, GradeB},
		{0.55, GradeB}, {0.549, GradeC},
		{0.40, GradeC}, {0.399, GradeD},
		{0, GradeD}, {1, GradeS},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.grade, GradeFor(tt.total), "total %v", tt.total)
	}
}

func TestIssuesFollowDeclarationOrder(t *testing.T) {
	score := New().Validate("<html></html>")

	var want []string
	for _, ind := range DefaultIndicators {
		if !ind.Test.Match("<html></html>") {
			want = append(want, ind.Name)
		}
	}
	assert.Equal(t, want, score.Issues)
}

func TestWeakestAxes(t *testing.T) {
	s := Score{Conatus: 0.9, Ratio: 0.2, Laetitia: 0.5, Natura: 0.1}
	assert.Equal(t, []Axis{AxisNatura, AxisRatio}, s.WeakestAxes(2))
}

func TestAxisScoresClamped(t *testing.T) {
	score := New().Validate(richDocument())
	for axis, v := range score.Axes() {
		assert.GreaterOrEqual(t, v, 0.0, axis)
		assert.LessOrEqual(t, v, 1.0, axis)
	}
}
