package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/debitsheet-import/internal/entity"
)

// line lays out words left to right at height y.
func line(y float64, words ...string) []entity.PositionedToken {
	out := make([]entity.PositionedToken, len(words))
	for i, w := range words {
		out[i] = entity.PositionedToken{Text: w, X: float64(i) * 40, Y: y, Width: 30, Height: 10, Page: 1}
	}
	return out
}

func TestGroupRows_Tolerance(t *testing.T) {
	tests := []struct {
		name     string
		y1, y2   float64
		wantRows int
	}{
		{"within band", 100.0, 102.5, 1},
		{"outside band", 100.0, 104.0, 2},
		{"exactly on the edge", 100.0, 103.0, 1},
		{"below", 100.0, 97.5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := []entity.PositionedToken{
				{Text: "a", X: 10, Y: tt.y1},
				{Text: "b", X: 20, Y: tt.y2},
			}
			assert.Len(t, GroupRows(tokens, 3), tt.wantRows)
		})
	}
}

func TestGroupRows_FirstMatchAndOrdering(t *testing.T) {
	tokens := []entity.PositionedToken{
		{Text: "low", X: 5, Y: 50},
		{Text: "right", X: 90, Y: 700},
		{Text: "left", X: 10, Y: 701},
		// within 3 of the 701 token, but the row keeps y=700, so this starts a new row
		{Text: "above", X: 10, Y: 703.5},
	}
	rows := GroupRows(tokens, 3)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"above"}, rows[0].Texts())
	assert.Equal(t, []string{"left", "right"}, rows[1].Texts())
	assert.Equal(t, 700.0, rows[1].Y)
	assert.Equal(t, []string{"low"}, rows[2].Texts())
}

func TestFindHeader(t *testing.T) {
	rows := GroupRows(append(append(
		line(800, "FICHE", "DE", "DEBIT"),
		line(780, "Désignation", "Matériaux", "Finition", "Long", "Larg", "Ep", "Nb", "Qté")...),
		line(760, "Plan", "Granit", "K2", "poli", "120", "60", "2", "1", "0,72")...), 3)

	assert.Equal(t, 1, FindHeader(rows, DefaultHeaderKeywords))
	assert.Equal(t, -1, FindHeader(rows, []string{"designation", "prix"}))
	assert.Equal(t, -1, FindHeader(rows, nil))
}

func TestColumnRules(t *testing.T) {
	byName := map[string]ColumnRule{}
	for _, r := range DefaultRules {
		byName[r.Name] = r
	}

	tests := []struct {
		rule    string
		text    string
		wantErr bool
		check   func(t *testing.T, it entity.LineItem)
	}{
		{"length", "120,5", false, func(t *testing.T, it entity.LineItem) { assert.Equal(t, 120.5, it.LengthCm) }},
		{"length", "abc", true, nil},
		{"width", "60", false, func(t *testing.T, it entity.LineItem) { assert.Equal(t, 60.0, it.WidthCm) }},
		{"thickness", "-2", true, nil},
		{"thickness", "3", false, func(t *testing.T, it entity.LineItem) { assert.Equal(t, 3.0, it.ThicknessCm) }},
		{"pieces", "4", false, func(t *testing.T, it entity.LineItem) { assert.Equal(t, 4, it.PieceCount) }},
		{"pieces", "1,5", true, nil},
		{"quantity", "0.72", false, func(t *testing.T, it entity.LineItem) { assert.Equal(t, 0.72, it.DeclaredQuantity) }},
	}
	for _, tt := range tests {
		t.Run(tt.rule+"/"+tt.text, func(t *testing.T) {
			rule, ok := byName[tt.rule]
			require.True(t, ok)
			var item entity.LineItem
			err := rule.Assign(&item, tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, item)
		})
	}
}

func TestSplitNameMaterial(t *testing.T) {
	tests := []struct {
		in       []string
		name     string
		material string
	}{
		{[]string{"Plan", "vasque", "Granit", "Noir", "K2"}, "Plan vasque", "Granit Noir K2"},
		{[]string{"Seuil", "AB12"}, "Seuil", "AB12"},
		{[]string{"Bloc", "12B"}, "Bloc", "12B"},
		{[]string{"Divers", "chutes"}, "Divers chutes", "Divers chutes"},
		{nil, "", ""},
	}
	for _, tt := range tests {
		name, mat := SplitNameMaterial(tt.in)
		assert.Equal(t, tt.name, name)
		assert.Equal(t, tt.material, mat)
	}
}

func TestParser_ParseLayout(t *testing.T) {
	var page []entity.PositionedToken
	page = append(page, line(800, "Client", "Dupont", "poli")...) // above the header, ignored
	page = append(page, line(780, "Désignation", "Matériaux", "Finition", "Long", "Larg", "Ep", "Nb", "Qté")...)
	page = append(page, line(760, "Plan", "Granit", "Noir", "K2", "Poli", "120", "60", "2", "1", "0,72")...)
	page = append(page, line(740, "Bloc", "Marbre", "12B", "brut", "100", "50", "40", "2", "0,4")...)
	page = append(page, line(720, "Tablette", "Granit", "K2", "adouci", "xx", "60", "2", "1", "0,5")...)
	page = append(page, line(700, "Total", "1,12")...)

	p := NewParser(Config{}, nil)
	res := p.ParseLayout([][]entity.PositionedToken{page})

	require.Len(t, res.Items, 2)
	slab := res.Items[0]
	assert.Equal(t, "Plan", slab.Description)
	assert.Equal(t, "Granit Noir K2", slab.MaterialName)
	assert.Equal(t, "polished", slab.Finish)
	assert.Equal(t, 120.0, slab.LengthCm)
	assert.Equal(t, 1, slab.PieceCount)
	require.NotNil(t, slab.AreaM2)
	assert.Equal(t, 0.72, *slab.AreaM2)
	assert.Nil(t, slab.VolumeM3)

	block := res.Items[1]
	assert.Equal(t, "raw", block.Finish)
	require.NotNil(t, block.VolumeM3)
	assert.Equal(t, 0.4, *block.VolumeM3)
	assert.Nil(t, block.AreaM2)

	assert.Equal(t, Stats{Rows: 4, Candidates: 3, Dropped: 1}, res.Stats)
	assert.Contains(t, res.Warnings, "layout fallback dropped 1 unreadable row(s)")

	assert.Equal(t, res.Items, p.Parse([][]entity.PositionedToken{page}))
}

func TestParser_AreaVolumeExclusive(t *testing.T) {
	codes := []string{"K2", "AB3", "Z99", "K", "12B", "7C"}
	var page []entity.PositionedToken
	for i, code := range codes {
		page = append(page, line(float64(500-20*i), "Dalle", "Granit", code, "poli", "100", "50", "3", "1", "0")...)
	}

	items := NewParser(Config{HeaderKeywords: []string{"none"}}, nil).Parse([][]entity.PositionedToken{page})
	require.Len(t, items, len(codes))
	for _, it := range items {
		assert.True(t, (it.AreaM2 == nil) != (it.VolumeM3 == nil), "item %s", it.MaterialName)
	}
}

func TestParser_NoHeaderUsesEveryRow(t *testing.T) {
	page := line(300, "Dalle", "Granit", "K2", "poli", "100", "50", "3", "1", "0,5")
	items := NewParser(Config{}, nil).Parse([][]entity.PositionedToken{page})
	require.Len(t, items, 1)
}
