package notice

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogNotifierLevels(t *testing.T) {
	var buf bytes.Buffer
	n := LogNotifier{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	n.Notify(Error, "save failed")
	n.Notify(Success, "saved")

	dec := json.NewDecoder(&buf)
	var first, second map[string]any
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&second))
	assert.Equal(t, "ERROR", first["level"])
	assert.Equal(t, "save failed", first["msg"])
	assert.Equal(t, "error", first["notice"])
	assert.Equal(t, "INFO", second["level"])
	assert.Equal(t, "success", second["notice"])
}

func TestSafe(t *testing.T) {
	assert.Equal(t, Nop{}, Safe(nil))

	var got []Level
	f := Func(func(l Level, _ string) { got = append(got, l) })
	Safe(f).Notify(Info, "hello")
	assert.Equal(t, []Level{Info}, got)

	LogNotifier{}.Notify(Error, "dropped")
}
