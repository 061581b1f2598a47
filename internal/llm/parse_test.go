package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/debitsheet-import/internal/material"
)

func TestParseModelReply_FencedFrenchReply(t *testing.T) {
	reply := "```json\n" + `{
  "header": {"numeroOS": "OS-2231", "numeroARC": "ARC-778", "client": "Dupont SA", "chantier": "Villa
Les Pins", "dateLivraison": "2024-06-12"},
  "lignes": [
    {"designation": "Plan vasque", "materiaux": "Granit Noir K2", "finition": "Poli", "longueur": "120", "largeur": "60,5", "epaisseur": 2, "nbPieces": 1, "qte": "0,73"},
    {"designation": "Bloc", "materiaux": "Marbre Blanc 12B", "finition": "brut", "longueur": 100, "largeur": 50, "epaisseur": 40, "nbPieces": 2, "qte": "0.4 m3"}
  ],
  "totalQuantite": "1,13",
  "confiance": 0.9
}` + "\n```"

	draft, err := ParseModelReply(reply, ParseOptions{})
	require.NoError(t, err)

	assert.Equal(t, "OS-2231", draft.RawHeader["numeroOS"])
	assert.Equal(t, "OS-2231", draft.Header.OrderNumber.Value)
	assert.Equal(t, 0.9, draft.Header.OrderNumber.Confidence)
	assert.Equal(t, "ARC-778", draft.Header.ARCNumber.Value)
	assert.Equal(t, "Dupont SA", draft.Header.ClientName.Value)
	assert.Equal(t, "Villa\nLes Pins", draft.Header.SiteReference.Value)
	assert.Equal(t, "2024-06-12", draft.Header.DueDate.Value)
	assert.Empty(t, draft.Header.SalespersonCode.Value)
	assert.Zero(t, draft.Header.SalespersonCode.Confidence)

	require.Len(t, draft.Items, 2)
	slab := draft.Items[0]
	assert.Equal(t, "Granit Noir K2", slab.MaterialName)
	assert.Equal(t, "polished", slab.Finish)
	assert.Equal(t, 60.5, slab.WidthCm)
	require.NotNil(t, slab.AreaM2)
	assert.InDelta(t, 0.73, *slab.AreaM2, 1e-9)
	assert.Nil(t, slab.VolumeM3)

	block := draft.Items[1]
	assert.Equal(t, "raw", block.Finish)
	assert.Equal(t, 2, block.PieceCount)
	require.NotNil(t, block.VolumeM3)
	assert.InDelta(t, 0.4, *block.VolumeM3, 1e-9)
	assert.Nil(t, block.AreaM2)

	require.NotNil(t, draft.DeclaredTotalQuantity.Value)
	assert.InDelta(t, 1.13, *draft.DeclaredTotalQuantity.Value, 1e-9)
	assert.InDelta(t, 0.73, draft.ComputedTotalArea, 1e-9)
	assert.InDelta(t, 0.4, draft.ComputedTotalVolume, 1e-9)
	assert.Equal(t, 0.9, draft.OverallConfidence)
	assert.Empty(t, draft.Warnings)
}

func TestParseModelReply_TopLevelHeaderAndDefaults(t *testing.T) {
	reply := `{"orderNumber": 4411, "items": [{"material": "Quartz Gris", "length": 200, "width": 100, "pieces": 2}]}`

	draft, err := ParseModelReply(reply, ParseOptions{})
	require.NoError(t, err)

	assert.Equal(t, "4411", draft.Header.OrderNumber.Value)
	assert.Equal(t, DefaultReplyConfidence, draft.OverallConfidence)
	assert.Nil(t, draft.DeclaredTotalQuantity.Value)

	require.Len(t, draft.Items, 1)
	item := draft.Items[0]
	require.NotNil(t, item.AreaM2)
	assert.InDelta(t, 4.0, *item.AreaM2, 1e-9)
	assert.Contains(t, draft.Warnings, `ambiguous material classification for "Quartz Gris", defaulted to area`)
}

func TestParseModelReply_AmbiguousBothPolicy(t *testing.T) {
	reply := `{"items": [{"material": "Onyx", "quantity": 3}]}`

	draft, err := ParseModelReply(reply, ParseOptions{Policy: material.Policy{AmbiguousBoth: true}})
	require.NoError(t, err)
	require.Len(t, draft.Items, 1)
	assert.NotNil(t, draft.Items[0].AreaM2)
	assert.NotNil(t, draft.Items[0].VolumeM3)
}

func TestParseModelReply_LenientDropsInvalidValues(t *testing.T) {
	reply := `{
  "header": {"client": "Martin"},
  "items": [
    {"materiaux": "Granit K2", "longueur": "environ deux metres", "largeur": 60, "qte": 1.2},
    "not an item"
  ],
  "confidence": 7,
  "warnings": ["tache sur la ligne 3", 42]
}`

	draft, err := ParseModelReply(reply, ParseOptions{})
	require.NoError(t, err)

	require.Len(t, draft.Items, 1)
	assert.Zero(t, draft.Items[0].LengthCm)
	assert.Equal(t, 60.0, draft.Items[0].WidthCm)
	assert.Equal(t, DefaultReplyConfidence, draft.OverallConfidence)
	assert.Contains(t, draft.Warnings, "tache sur la ligne 3")
	assert.Contains(t, draft.Warnings, "dropped invalid value at items[0].length_cm")
	assert.Contains(t, draft.Warnings, "dropped invalid value at items[1]")
	assert.Contains(t, draft.Warnings, "dropped invalid value at confidence")
}

func TestParseModelReply_EmptyItemsIsNotAnError(t *testing.T) {
	draft, err := ParseModelReply(`{"client": "Martin"}`, ParseOptions{})
	require.NoError(t, err)
	assert.Empty(t, draft.Items)
	assert.Equal(t, "Martin", draft.Header.ClientName.Value)
}

func TestCoerceDraft_IgnoresUnknownKeys(t *testing.T) {
	doc, raw, ignored := CoerceDraft(map[string]any{
		"numeroOS": "A1",
		"prix":     "12 EUR",
	})
	assert.Equal(t, map[string]string{"numeroOS": "A1"}, raw)
	assert.Equal(t, []string{"prix"}, ignored)
	assert.Equal(t, "A1", doc[keyHeader].(map[string]any)[keyOrderNumber])
	assert.Equal(t, []any{}, doc[keyItems])
}

func TestParseModelReply_FencedScenario(t *testing.T) {
	reply := "```json\n{\"numeroOS\":\"OS1\",\"items\":[{\"materiaux\":\"ABC K2\",\"qte\":5}]}\n```"

	draft, err := ParseModelReply(reply, ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, "OS1", draft.RawHeader["numeroOS"])
	require.Len(t, draft.Items, 1)
	require.NotNil(t, draft.Items[0].AreaM2)
	assert.Equal(t, 5.0, *draft.Items[0].AreaM2)
	assert.Nil(t, draft.Items[0].VolumeM3)
}

func TestParseModelReply_RepairedEqualsClean(t *testing.T) {
	clean := `{"client":"Dupont","items":[{"designation":"Plan\ntravail","materiaux":"Granit K2","qte":1.5}]}`
	broken := "```json\n{\"client\":\"Dupont\",\"items\":[{\"designation\":\"Plan\ntravail\",\"materiaux\":\"Granit K2\",\"qte\":1.5}]}\n```"

	want, err := ParseModelReply(clean, ParseOptions{})
	require.NoError(t, err)
	got, err := ParseModelReply(broken, ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
