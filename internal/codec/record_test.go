package codec

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() Record {
	return Record{
		ID:             "1700000000000-abc1234",
		Name:           "A",
		Category:       "Tools",
		Description:    "d",
		EncryptedValue: "FHE-NDI=",
		Timestamp:      1700000000,
	}
}

func TestRecordRoundTrip(t *testing.T) {
	records := []Record{
		sampleRecord(),
		{ID: "1-a", Name: "Wallet <Pay> & co", Category: "Payment", EncryptedValue: "FHE-MC41", Timestamp: 0},
		{ID: "2-b", Name: "café", Category: "DID", Description: "line1\nline2 \"quoted\"", EncryptedValue: "17", Timestamp: -5},
		{ID: "3-c", Name: "日本", Category: "Custom Label", Description: "", EncryptedValue: "SBX-abcd", Timestamp: 4102444800},
	}

	for _, rec := range records {
		t.Run(rec.ID, func(t *testing.T) {
			data, err := EncodeRecord(rec)
			require.NoError(t, err)

			got, err := DecodeRecord(rec.ID, data)
			require.NoError(t, err)
			assert.Equal(t, rec, got)
		})
	}
}

func TestEncodeRecordGolden(t *testing.T) {
	data, err := EncodeRecord(sampleRecord())
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "record_payload", data)
}

func TestEncodeRecordDeterministic(t *testing.T) {
	a, err := EncodeRecord(sampleRecord())
	require.NoError(t, err)
	b, err := EncodeRecord(sampleRecord())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecodeRecordBrowserFormat(t *testing.T) {
	// Payload as written by the web client: insertion
	// key order, no canonicalization.
	data := []byte(`{"name":"Pay","value":"FHE-MTIz","timestamp":1699999999,"category":"Payment","description":"x"}`)

	rec, err := DecodeRecord("1699999999000-zzzzzzz", data)
	require.NoError(t, err)
	assert.Equal(t, "Pay", rec.Name)
	assert.Equal(t, "FHE-MTIz", rec.EncryptedValue)
	assert.Equal(t, int64(1699999999), rec.Timestamp)
	assert.Equal(t, "Payment", rec.Category)
	assert.Equal(t, "x", rec.Description)
}

func TestDecodeRecordOptionalFields(t *testing.T) {
	rec, err := DecodeRecord("id", []byte(`{"name":"n","value":"v","timestamp":1,"description":null}`))
	require.NoError(t, err)
	assert.Equal(t, "", rec.Category)
	assert.Equal(t, "", rec.Description)
}

func TestDecodeRecordErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"whitespace", "  \n"},
		{"truncated", `{"name":"A","value":"FHE-`},
		{"null", "null"},
		{"array", `["a"]`},
		{"missing name", `{"value":"v","timestamp":1}`},
		{"missing value", `{"name":"n","timestamp":1}`},
		{"missing timestamp", `{"name":"n","value":"v"}`},
		{"numeric value", `{"name":"n","value":42,"timestamp":1}`},
		{"string timestamp", `{"name":"n","value":"v","timestamp":"1"}`},
		{"fractional timestamp", `{"name":"n","value":"v","timestamp":1.5}`},
		{"numeric category", `{"name":"n","value":"v","timestamp":1,"category":7}`},
		{"trailing partial object", `{"name":"a","value":"FHE-NDI=","timestamp":1}{"name":"b","val`},
		{"trailing value", `{"name":"a","value":"FHE-NDI=","timestamp":1} 7`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRecord("bad", []byte(tt.data))
			require.Error(t, err)
			assert.True(t, IsDecodeError(err), "expected DecodeError, got %T", err)

			var de *DecodeError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, "extension_bad", de.Key)
		})
	}
}
