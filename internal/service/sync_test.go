package service

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"github.com/frotaops/sheetgate/internal/model"
	"github.com/frotaops/sheetgate/internal/transport"
)

// fakeTransport records every upstream call and serves canned responses.
type fakeTransport struct {
	mu     sync.Mutex
	reads  []string
	writes []writeCall

	grids  map[string][][]string
	sheets []transport.SheetInfo

	metadataCalls int
	readErr       error
}

type writeCall struct {
	op     string // "append", "overwrite", "delete"
	rng    string
	values []string

	sheetID    int64
	startIndex int
	endIndex   int
}

func (f *fakeTransport) ReadRange(ctx context.Context, rng string) ([][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads = append(f.reads, rng)
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.grids[rng], nil
}

func (f *fakeTransport) AppendRow(ctx context.Context, rng string, values []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, writeCall{op: "append", rng: rng, values: values})
	return nil
}

func (f *fakeTransport) OverwriteRow(ctx context.Context, rng string, values []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, writeCall{op: "overwrite", rng: rng, values: values})
	return nil
}

func (f *fakeTransport) DeleteRows(ctx context.Context, sheetID int64, startIndex, endIndex int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, writeCall{op: "delete", sheetID: sheetID, startIndex: startIndex, endIndex: endIndex})
	return nil
}

func (f *fakeTransport) Metadata(ctx context.Context) ([]transport.SheetInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metadataCalls++
	return f.sheets, nil
}

func (f *fakeTransport) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reads)
}

func newFleetTransport() *fakeTransport {
	return &fakeTransport{
		grids: map[string][][]string{
			"'Veiculo'": {
				{"Codigo", "Descrição"},
				{"EC-21.4", "Escavadeira"},
				{"CM-07", "Caminhão"},
			},
			"'Veiculo'!1:1": {
				{"Codigo", "Descrição"},
			},
		},
		sheets: []transport.SheetInfo{
			{ID: 0, Title: "Veiculo"},
			{ID: 418, Title: "Abastecimento"},
		},
	}
}

func TestGetData(t *testing.T) {
	t.Run("full sheet with row indices", func(t *testing.T) {
		tp := newFleetTransport()
		s := New("wb", tp)

		resp, err := s.GetData(context.Background(), "Veiculo", "", false)
		if err != nil {
			t.Fatalf("GetData: %v", err)
		}
		if !reflect.DeepEqual(resp.Headers, []string{"Codigo", "Descrição"}) {
			t.Errorf("headers = %v", resp.Headers)
		}
		want := []model.Record{
			{"Codigo": "EC-21.4", "Descrição": "Escavadeira", model.RowIndexKey: 2},
			{"Codigo": "CM-07", "Descrição": "Caminhão", model.RowIndexKey: 3},
		}
		if !reflect.DeepEqual(resp.Rows, want) {
			t.Errorf("rows = %v, want %v", resp.Rows, want)
		}
		if got := tp.reads; !reflect.DeepEqual(got, []string{"'Veiculo'"}) {
			t.Errorf("reads = %v", got)
		}
	})

	t.Run("repeated reads hit the cache", func(t *testing.T) {
		tp := newFleetTransport()
		s := New("wb", tp)

		for i := 0; i < 10; i++ {
			if _, err := s.GetData(context.Background(), "Veiculo", "", false); err != nil {
				t.Fatalf("GetData %d: %v", i, err)
			}
		}
		if n := tp.readCount(); n != 1 {
			t.Errorf("upstream reads = %d, want 1", n)
		}
	})

	t.Run("noCache still coalesces within the bypass window", func(t *testing.T) {
		tp := newFleetTransport()
		s := New("wb", tp)

		// A bypass read populates the cache; immediate bypass re-reads
		// stay within the short window and reuse it.
		for i := 0; i < 5; i++ {
			if _, err := s.GetData(context.Background(), "Veiculo", "", true); err != nil {
				t.Fatalf("GetData %d: %v", i, err)
			}
		}
		if n := tp.readCount(); n != 1 {
			t.Errorf("upstream reads = %d, want 1", n)
		}
	})

	t.Run("explicit range is read verbatim", func(t *testing.T) {
		tp := newFleetTransport()
		tp.grids["'Veiculo'!A1:B2"] = [][]string{{"Codigo", "Descrição"}, {"EC-21.4", "Escavadeira"}}
		s := New("wb", tp)

		resp, err := s.GetData(context.Background(), "Veiculo", "'Veiculo'!A1:B2", false)
		if err != nil {
			t.Fatalf("GetData: %v", err)
		}
		if len(resp.Rows) != 1 {
			t.Errorf("rows = %v", resp.Rows)
		}
		if got := tp.reads; !reflect.DeepEqual(got, []string{"'Veiculo'!A1:B2"}) {
			t.Errorf("reads = %v", got)
		}
	})

	t.Run("upstream failure propagates", func(t *testing.T) {
		tp := newFleetTransport()
		tp.readErr = &model.TransportError{Op: "values.get", Status: 500, Body: "boom"}
		s := New("wb", tp)

		_, err := s.GetData(context.Background(), "Veiculo", "", false)
		if _, ok := model.AsTransport(err); !ok {
			t.Fatalf("error = %v, want TransportError", err)
		}
	})
}

func TestCreate(t *testing.T) {
	tp := newFleetTransport()
	s := New("wb", tp)

	err := s.Create(context.Background(), "Veiculo", map[string]string{
		"codigo":    "X1",
		"DESCRICAO": "Teste",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if len(tp.writes) != 1 {
		t.Fatalf("writes = %v", tp.writes)
	}
	w := tp.writes[0]
	if w.op != "append" || w.rng != "'Veiculo'!A1" {
		t.Errorf("write = %+v", w)
	}
	// Values are matched to the live header row by normalized name.
	if !reflect.DeepEqual(w.values, []string{"X1", "Teste"}) {
		t.Errorf("values = %v", w.values)
	}
}

func TestUpdate(t *testing.T) {
	tp := newFleetTransport()
	s := New("wb", tp)

	err := s.Update(context.Background(), "Veiculo", map[string]string{"Codigo": "EC-21.4", "Descrição": "Revisada"}, 2)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if len(tp.writes) != 1 {
		t.Fatalf("writes = %v", tp.writes)
	}
	w := tp.writes[0]
	if w.op != "overwrite" || w.rng != "'Veiculo'!A2:B2" {
		t.Errorf("write = %+v", w)
	}
	if !reflect.DeepEqual(w.values, []string{"EC-21.4", "Revisada"}) {
		t.Errorf("values = %v", w.values)
	}
}

func TestDelete(t *testing.T) {
	t.Run("converts the row index to a half-open interval", func(t *testing.T) {
		tp := newFleetTransport()
		s := New("wb", tp)

		if err := s.Delete(context.Background(), "Abastecimento", 5); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if len(tp.writes) != 1 {
			t.Fatalf("writes = %v", tp.writes)
		}
		w := tp.writes[0]
		if w.op != "delete" || w.sheetID != 418 || w.startIndex != 4 || w.endIndex != 5 {
			t.Errorf("write = %+v", w)
		}
	})

	t.Run("unknown sheet is a caller error", func(t *testing.T) {
		tp := newFleetTransport()
		s := New("wb", tp)

		err := s.Delete(context.Background(), "Inexistente", 2)
		be, ok := model.AsBadRequest(err)
		if !ok {
			t.Fatalf("error = %v, want BadRequestError", err)
		}
		if be.Reason != `unknown sheet "Inexistente"` {
			t.Errorf("reason = %q", be.Reason)
		}
		if len(tp.writes) != 0 {
			t.Errorf("writes = %v, want none", tp.writes)
		}
	})

	t.Run("drops cached metadata", func(t *testing.T) {
		tp := newFleetTransport()
		s := New("wb", tp)

		if _, err := s.ListSheetNames(context.Background()); err != nil {
			t.Fatalf("ListSheetNames: %v", err)
		}
		if err := s.Delete(context.Background(), "Veiculo", 2); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := s.ListSheetNames(context.Background()); err != nil {
			t.Fatalf("ListSheetNames: %v", err)
		}
		if tp.metadataCalls != 2 {
			t.Errorf("metadata calls = %d, want 2", tp.metadataCalls)
		}
	})
}

func TestWriteInvalidatesReads(t *testing.T) {
	tp := newFleetTransport()
	s := New("wb", tp)

	if _, err := s.GetData(context.Background(), "Veiculo", "", false); err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if err := s.Create(context.Background(), "Veiculo", map[string]string{"Codigo": "X1"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.GetData(context.Background(), "Veiculo", "", false); err != nil {
		t.Fatalf("GetData after write: %v", err)
	}

	// One data read before the write, header read for the write, one data
	// read after: the post-write read must not be served from cache.
	var dataReads int
	for _, rng := range tp.reads {
		if rng == "'Veiculo'" {
			dataReads++
		}
	}
	if dataReads != 2 {
		t.Errorf("data reads = %d (all reads: %v), want 2", dataReads, tp.reads)
	}
}

func TestHeaderRowIsCachedAcrossWrites(t *testing.T) {
	tp := newFleetTransport()
	s := New("wb", tp)

	// Creates against different sheets share nothing, but repeated creates
	// before invalidation reuse the header fetch within one call.
	if err := s.Create(context.Background(), "Veiculo", map[string]string{"Codigo": "X1"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	var headerReads int
	for _, rng := range tp.reads {
		if rng == "'Veiculo'!1:1" {
			headerReads++
		}
	}
	if headerReads != 1 {
		t.Errorf("header reads = %d, want 1", headerReads)
	}
}

func TestListSheetNames(t *testing.T) {
	tp := newFleetTransport()
	s := New("wb", tp)

	names, err := s.ListSheetNames(context.Background())
	if err != nil {
		t.Fatalf("ListSheetNames: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"Veiculo", "Abastecimento"}) {
		t.Errorf("names = %v", names)
	}

	// Second call is served from the metadata cache.
	if _, err := s.ListSheetNames(context.Background()); err != nil {
		t.Fatalf("ListSheetNames: %v", err)
	}
	if tp.metadataCalls != 1 {
		t.Errorf("metadata calls = %d, want 1", tp.metadataCalls)
	}
}

func TestPing(t *testing.T) {
	tp := newFleetTransport()
	s := New("wb", tp)

	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
	if tp.metadataCalls != 1 {
		t.Errorf("metadata calls = %d, want 1", tp.metadataCalls)
	}
}
