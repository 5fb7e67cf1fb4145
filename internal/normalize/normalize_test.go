package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		payload string
		want    Shape
	}{
		{`{"outputs":[{"text":"a"}]}`, ArrayOutputs},
		{`{"outputs":{"text":"a"}}`, ObjectOutputs},
		{`{"answer":"a"}`, FlatFields},
		{`{"result":1}`, FlatFields},
		{`{"outputs":"plain"}`, Unknown},
		{`{}`, Unknown},
		{`[]`, Unknown},
		{`null`, Unknown},
		{`not-json`, Unknown},
		{``, Unknown},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Classify([]byte(tc.payload)), "payload=%q", tc.payload)
	}
}

func TestNormalize_AllShapesReturnAllFields(t *testing.T) {
	payloads := []string{
		`{"outputs":[{"text":"a"},"b"]}`,
		`{"outputs":{"text":"a"}}`,
		`{"result":"r"}`,
		`{"message":"m"}`,
		`{"answer":"a"}`,
		`{}`,
		`null`,
		`"just a string"`,
		`{"outputs":[1,null,true]}`,
		`{"outputs":{"text":5,"cards":"x","suggestions":{}}}`,
		`{broken`,
		``,
	}
	for _, p := range payloads {
		out := Normalize([]byte(p))
		require.NotNil(t, out.Cards, "payload=%q", p)
		require.NotNil(t, out.Suggestions, "payload=%q", p)
		require.True(t, json.Valid(out.Raw), "payload=%q", p)

		encoded, err := json.Marshal(out)
		require.NoError(t, err)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(encoded, &decoded))
		require.IsType(t, "", decoded["text"])
		require.IsType(t, []any{}, decoded["cards"])
		require.IsType(t, []any{}, decoded["suggestions"])
		require.Contains(t, decoded, "raw")
	}
}

func TestNormalize_ObjectOutputs(t *testing.T) {
	payload := `{"outputs":{"text":"hi","cards":[{"title":"A"}],"suggestions":["x"]}}`
	out := Normalize([]byte(payload))

	require.Equal(t, "hi", out.Text)
	require.Len(t, out.Cards, 1)
	require.Equal(t, "A", out.Cards[0].Title)
	require.Equal(t, []string{"x"}, out.Suggestions)
	require.JSONEq(t, payload, string(out.Raw))

	encoded, err := json.Marshal(out)
	require.NoError(t, err)
	require.JSONEq(t, `{"text":"hi","cards":[{"title":"A"}],"suggestions":["x"],"raw":`+payload+`}`, string(encoded))
}

func TestNormalize_ArrayOutputsJoinsText(t *testing.T) {
	out := Normalize([]byte(`{"outputs":[{"text":"a"},{"text":"b"}]}`))
	require.Equal(t, "a\nb", out.Text)
}

func TestNormalize_ArrayOutputsAccumulates(t *testing.T) {
	out := Normalize([]byte(`{"outputs":[
		"first",
		{"cards":[{"title":"A","image":"https://img/a.png"}],"suggestions":["s1"]},
		{"text":"second","cards":[{"title":"B","description":"bee","extra":1}],"suggestions":["s2",3,"s3"]}
	]}`))

	require.Equal(t, "first\nsecond", out.Text)
	require.Len(t, out.Cards, 2)
	require.Equal(t, "A", out.Cards[0].Title)
	require.Equal(t, "https://img/a.png", out.Cards[0].Image)
	require.Equal(t, "B", out.Cards[1].Title)
	require.Equal(t, "bee", out.Cards[1].Description)
	require.Equal(t, []string{"s1", "s2", "s3"}, out.Suggestions)

	// Unmodelled card fields survive encoding.
	encoded, err := json.Marshal(out.Cards[1])
	require.NoError(t, err)
	require.JSONEq(t, `{"title":"B","description":"bee","extra":1}`, string(encoded))
}

func TestNormalize_SkipsMistypedCardsAndSuggestions(t *testing.T) {
	out := Normalize([]byte(`{"outputs":{"text":"t","cards":[{"title":"A"},"oops",7,null,["x"],{"title":"B"}],"suggestions":["one",2,{"s":"x"},null,"two"]}}`))
	require.Len(t, out.Cards, 2)
	require.Equal(t, "A", out.Cards[0].Title)
	require.Equal(t, "B", out.Cards[1].Title)
	require.Equal(t, []string{"one", "two"}, out.Suggestions)

	out = Normalize([]byte(`{"outputs":[{"cards":["bad"],"suggestions":[1]},{"cards":[{"title":"C"}],"suggestions":["s"]}]}`))
	require.Len(t, out.Cards, 1)
	require.Equal(t, "C", out.Cards[0].Title)
	require.Equal(t, []string{"s"}, out.Suggestions)
}

func TestNormalize_ArrayOutputsSkipsEmptyLeadingText(t *testing.T) {
	out := Normalize([]byte(`{"outputs":[{"cards":[]},"a"]}`))
	require.Equal(t, "a", out.Text)
}

func TestNormalize_FallbackOrder(t *testing.T) {
	require.Equal(t, "m", Normalize([]byte(`{"message":"m","answer":"a"}`)).Text)
	require.Equal(t, "r", Normalize([]byte(`{"result":"r","message":"m","answer":"a"}`)).Text)
	require.Equal(t, "a", Normalize([]byte(`{"result":7,"message":null,"answer":"a"}`)).Text)
}

func TestNormalize_OutputsWinOverFlatFields(t *testing.T) {
	out := Normalize([]byte(`{"outputs":{"text":"structured"},"answer":"flat"}`))
	require.Equal(t, "structured", out.Text)
}

func TestNormalize_FallbackWhenOutputsHaveNoText(t *testing.T) {
	out := Normalize([]byte(`{"outputs":{"suggestions":["x"]},"answer":"flat"}`))
	require.Equal(t, "flat", out.Text)
	require.Equal(t, []string{"x"}, out.Suggestions)
}

func TestNormalize_EmptyObject(t *testing.T) {
	out := Normalize([]byte(`{}`))
	require.Equal(t, "", out.Text)
	require.Empty(t, out.Cards)
	require.Empty(t, out.Suggestions)
	require.JSONEq(t, `{}`, string(out.Raw))
}

func TestNormalize_InvalidJSONIsCarriedAsString(t *testing.T) {
	out := Normalize([]byte(`<html>bad gateway</html>`))
	require.Equal(t, "", out.Text)
	var carried string
	require.NoError(t, json.Unmarshal(out.Raw, &carried))
	require.Equal(t, "<html>bad gateway</html>", carried)
}

func TestConversationID(t *testing.T) {
	require.Equal(t, "c1", ConversationID([]byte(`{"conversation_id":"c1","answer":"x"}`)))
	require.Equal(t, "", ConversationID([]byte(`{"conversation_id":42}`)))
	require.Equal(t, "", ConversationID([]byte(`{}`)))
	require.Equal(t, "", ConversationID([]byte(`nope`)))
}
