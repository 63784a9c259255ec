package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"go.viam.com/test"
)

type plateRecord struct {
	PlateID uint32
	Name    string
	hidden  string
}

// splitLogLine returns the tab-delimited parts of the next log line written to the buffer.
func splitLogLine(t *testing.T, buf *bytes.Buffer) []string {
	t.Helper()
	line, err := buf.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)
	return strings.Split(strings.TrimSuffix(line, "\n"), "\t")
}

func TestConsoleOutputFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := &impl{"impl", NewAtomicLevelAt(DEBUG), true, []Appender{NewWriterAppender(&buf)}}

	logger.Infow("reconstructed 3 features")
	parts := splitLogLine(t, &buf)
	test.That(t, parts, test.ShouldHaveLength, 5)
	test.That(t, parts[1], test.ShouldEqual, "INFO")
	test.That(t, parts[2], test.ShouldEqual, "impl")
	test.That(t, parts[3], test.ShouldStartWith, "logging/impl_test.go:")
	test.That(t, parts[4], test.ShouldEqual, "reconstructed 3 features")

	logger.Debugw("plate unresolvable", "plate", 801)
	parts = splitLogLine(t, &buf)
	test.That(t, parts[1], test.ShouldEqual, "DEBUG")
	test.That(t, parts[4], test.ShouldEqual, "plate unresolvable")
	test.That(t, parts[5], test.ShouldEqual, `{"plate":801}`)

	logger.Warnw("excluded feature", "plate", plateRecord{801, "Africa", "x"}, "time", 70.0)
	parts = splitLogLine(t, &buf)
	test.That(t, parts, test.ShouldHaveLength, 6)
	fields := map[string]any{}
	test.That(t, json.Unmarshal([]byte(parts[5]), &fields), test.ShouldBeNil)
	test.That(t, fields["time"], test.ShouldEqual, 70.0)
	test.That(t, fields["plate"], test.ShouldResemble, map[string]any{"PlateID": 801.0, "Name": "Africa"})
}

func TestUnpairedKey(t *testing.T) {
	var buf bytes.Buffer
	logger := &impl{"", NewAtomicLevelAt(DEBUG), true, []Appender{NewWriterAppender(&buf)}}
	logger.Errorw("oops", "lonely")
	parts := splitLogLine(t, &buf)
	test.That(t, parts[len(parts)-1], test.ShouldContainSubstring, "unpaired log key")
}

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := &impl{"impl", NewAtomicLevelAt(INFO), true, []Appender{NewWriterAppender(&buf)}}

	logger.Debugw("hidden")
	test.That(t, buf.Len(), test.ShouldEqual, 0)

	logger.CDebugw(EnableDebugMode(context.Background(), ""), "shown anyway")
	parts := splitLogLine(t, &buf)
	test.That(t, parts[len(parts)-1], test.ShouldEqual, "shown anyway")

	logger.SetLevel(ERROR)
	logger.Warnw("hidden")
	test.That(t, buf.Len(), test.ShouldEqual, 0)
	test.That(t, logger.GetLevel(), test.ShouldEqual, ERROR)

	level, err := LevelFromString("WARNING")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, level, test.ShouldEqual, WARN)
	_, err = LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)

	var fromJSON Level
	test.That(t, json.Unmarshal([]byte(`"debug"`), &fromJSON), test.ShouldBeNil)
	test.That(t, fromJSON, test.ShouldEqual, DEBUG)
}

func TestSublogger(t *testing.T) {
	var buf bytes.Buffer
	logger := &impl{"recon", NewAtomicLevelAt(DEBUG), true, []Appender{NewWriterAppender(&buf)}}
	sub := logger.Sublogger("resolver")
	sub.Infow("hello")
	parts := splitLogLine(t, &buf)
	test.That(t, parts[2], test.ShouldEqual, "recon.resolver")
}

func TestObservedTestLogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Infow("tree built", "plates", 12)
	test.That(t, logs.FilterMessage("tree built").Len(), test.ShouldEqual, 1)
	test.That(t, logs.All()[0].ContextMap()["plates"], test.ShouldEqual, int64(12))
}

func TestGlobalLogger(t *testing.T) {
	original := Global()
	defer ReplaceGlobal(original)
	test.That(t, original.GetLevel(), test.ShouldEqual, DEBUG)

	logger := NewBlankLogger("global")
	logger.SetLevel(INFO)
	test.That(t, logger.GetLevel(), test.ShouldEqual, INFO)
	ReplaceGlobal(logger)
	test.That(t, Global(), test.ShouldEqual, logger)
}
