package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/sam80180/stardb-exporter/extract"
	mypubsub "github.com/sam80180/stardb-exporter/pubsub"
	"github.com/sam80180/stardb-exporter/tables"
	"github.com/stretchr/testify/require"
)

var flower = extract.Artifact{
	SetKey:      "GladiatorsFinale",
	SlotKey:     "flower",
	Level:       4,
	Rarity:      5,
	MainStatKey: "hp",
	Substats:    []tables.Substat{{Key: "critRate_", Value: 6.6}},
}

func TestResultDocuments(t *testing.T) {
	b, err := json.Marshal(Result{Game: "gi", Artifacts: []extract.Artifact{flower}})
	require.NoError(t, err)
	require.JSONEq(t, `{"format":"GOOD","version":2,"source":"stardb-exporter","artifacts":[
		{"setKey":"GladiatorsFinale","slotKey":"flower","level":4,"rarity":5,"mainStatKey":"hp","location":"","lock":false,
		 "substats":[{"key":"critRate_","value":6.6}]}]}`, string(b))

	b, err = json.Marshal(Result{Game: "hsr", Achievements: []uint32{4010101}})
	require.NoError(t, err)
	require.JSONEq(t, `{"game":"hsr","achievements":[4010101]}`, string(b))

	b, err = json.Marshal(Result{Game: "gi", Err: extract.ErrNoAchievements})
	require.NoError(t, err)
	require.JSONEq(t, `{"game":"gi","error":"no achievements found"}`, string(b))
	require.Equal(t, KIND_ERROR, Result{Err: errors.New("x"), Achievements: []uint32{1}}.Kind())
} // end TestResultDocuments()

func TestSinkOptions(t *testing.T) {
	opts, err := ParseSinkOptions("")
	require.NoError(t, err)
	require.Equal(t, DefaultSinkOptions(), *opts)

	opts, err = ParseSinkOptions("type=file&path=out.json.zst&compression=zstd")
	require.NoError(t, err)
	require.Equal(t, COMPRESSION_ZSTD, opts.Compression)

	_, err = ParseSinkOptions("type=file")
	require.Error(t, err)
	_, err = ParseSinkOptions("type=stdout&compression=lz4")
	require.Error(t, err)

	var fromJSON SinkOptions
	require.NoError(t, json.Unmarshal([]byte(`{"type":"redis","url":"redis://localhost:6379/0"}`), &fromJSON))
	busOpts, err := fromJSON.busOptions()
	require.NoError(t, err)
	require.Equal(t, mypubsub.DEFAULT_RESULTS_TOPIC, busOpts.Topic)
} // end TestSinkOptions()

func decompress(t *testing.T, algo string, b []byte) []byte {
	var r io.Reader
	switch algo {
	case COMPRESSION_GZIP:
		gz, err := gzip.NewReader(bytes.NewReader(b))
		require.NoError(t, err)
		r = gz
	case COMPRESSION_ZSTD:
		zr, err := zstd.NewReader(bytes.NewReader(b))
		require.NoError(t, err)
		defer zr.Close()
		out, err := io.ReadAll(zr)
		require.NoError(t, err)
		return out
	case COMPRESSION_BROTLI:
		r = brotli.NewReader(bytes.NewReader(b))
	default:
		return b
	} // end switch
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return out
} // end decompress()

type closingBuffer struct {
	bytes.Buffer
	closed bool
}

func (b *closingBuffer) Close() error {
	b.closed = true
	return nil
}

func TestWriterSinkCompression(t *testing.T) {
	for _, algo := range []string{COMPRESSION_NONE, COMPRESSION_GZIP, COMPRESSION_ZSTD, COMPRESSION_BROTLI} {
		buf := &closingBuffer{}
		s, err := NewWriterSink(buf, algo)
		require.NoError(t, err)
		require.NoError(t, s.Emit(context.Background(), Result{Game: "gi", Achievements: []uint32{1, 2}}))
		require.NoError(t, s.Close())
		require.True(t, buf.closed)
		require.Equal(t, `{"game":"gi","achievements":[1,2]}`+"\n", string(decompress(t, algo, buf.Bytes())), algo)
	} // end for
} // end TestWriterSinkCompression()

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "good.json")
	s, err := New(SinkOptions{Type: "file", Path: path})
	require.NoError(t, err)
	require.NoError(t, s.Emit(context.Background(), Result{Game: "gi", Artifacts: []extract.Artifact{flower}}))
	require.NoError(t, s.Close())
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	doc := goodDocument{}
	require.NoError(t, json.Unmarshal(b, &doc))
	require.Equal(t, []extract.Artifact{flower}, doc.Artifacts)
} // end TestFileSink()

func TestBusSink(t *testing.T) {
	bus := mypubsub.NewLocalBus()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ch, err := bus.Subscribe(ctx, mypubsub.DEFAULT_RESULTS_TOPIC)
	require.NoError(t, err)
	s := NewBusSink(bus, mypubsub.DEFAULT_RESULTS_TOPIC)
	require.NoError(t, s.Emit(ctx, Result{Game: "hsr", Err: extract.ErrNoAchievements}))
	select {
	case msg := <-ch:
		msg.Ack()
		require.Equal(t, KIND_ERROR, msg.Metadata.Get("kind"))
		require.Equal(t, "hsr", msg.Metadata.Get("game"))
		require.JSONEq(t, `{"game":"hsr","error":"no achievements found"}`, string(msg.Payload))
	case <-ctx.Done():
		t.Fatal("result not delivered")
	} // end select
	require.NoError(t, s.Close())
} // end TestBusSink()
