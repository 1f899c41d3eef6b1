package fingerprint

import (
	"context"
	"testing"

	"tyrb/internal/source"
)

func file(content string) *source.File {
	return source.NewFile("a.rb", []byte(content), source.KindNormal)
}

func TestHashDeterministic(t *testing.T) {
	ctx := context.Background()
	first := ComputeStateHashes(ctx, []*source.File{file("class A; def foo; end; end")}, 2)
	second := ComputeStateHashes(ctx, []*source.File{file("class A; def foo; end; end")}, 2)
	if first[0] == 0 {
		t.Fatal("hash must be nonzero for a parsed file")
	}
	if first[0] != second[0] {
		t.Fatalf("hash not deterministic: %d vs %d", first[0], second[0])
	}
}

func TestHashIgnoresWhitespace(t *testing.T) {
	ctx := context.Background()
	hashes := ComputeStateHashes(ctx, []*source.File{
		file("class A; end"),
		file("class A;  end"),
		file("class A; end\n"),
	}, 2)
	if hashes[0] != hashes[1] || hashes[1] != hashes[2] {
		t.Fatalf("whitespace changed the fingerprint: %v", hashes)
	}
}

func TestHashSensitiveToDefinitions(t *testing.T) {
	ctx := context.Background()
	hashes := ComputeStateHashes(ctx, []*source.File{
		file("class A; end"),
		file("class A; def foo; end; end"),
		file("class A; def foo(x); end; end"),
		file("class A; def foo(x: Integer); end; end"),
	}, 2)
	seen := map[uint32]int{}
	for i, h := range hashes {
		if prev, dup := seen[h]; dup {
			t.Fatalf("inputs %d and %d collide on %d", prev, i, h)
		}
		seen[h] = i
	}
}

func TestOrderIndependence(t *testing.T) {
	ctx := context.Background()
	a := file("class A; end")
	b := file("class B; def x; end; end")
	forward := ComputeStateHashes(ctx, []*source.File{a, b}, 2)
	backward := ComputeStateHashes(ctx, []*source.File{b, a}, 2)
	if forward[0] != backward[1] || forward[1] != backward[0] {
		t.Fatal("result depends on batch siblings")
	}
	alone := ComputeStateHashes(ctx, []*source.File{a}, 1)
	if alone[0] != forward[0] {
		t.Fatal("result depends on batch size")
	}
}

func TestNilAndTombstoneEntriesAreZero(t *testing.T) {
	ctx := context.Background()
	dead := source.NewFile("dead.rb", nil, source.KindTombStone)
	hashes := ComputeStateHashes(ctx, []*source.File{nil, file("class A; end"), dead}, 2)
	if hashes[0] != 0 || hashes[2] != 0 {
		t.Fatalf("nil/tombstone entries must be zero: %v", hashes)
	}
	if hashes[1] == 0 {
		t.Fatal("live entry must be nonzero")
	}
}

func TestBrokenFileStillHashes(t *testing.T) {
	ctx := context.Background()
	hashes := ComputeStateHashes(ctx, []*source.File{file("class ; def ("), file("class ; def (")}, 2)
	if hashes[0] != hashes[1] {
		t.Fatal("broken files must fingerprint deterministically")
	}
}

func TestEmptyBatch(t *testing.T) {
	if got := ComputeStateHashes(context.Background(), nil, 2); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}
