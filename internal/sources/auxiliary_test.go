package sources_test

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"opacitydb/internal/sources"
)

func TestReadContinuumTable(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "cia.csv"),
		"# CIA coefficients\ntemperature,wavenumber,H2-H2,H2-He\n"+
			"100,10,1,5\n100,20,2,6\n200,10,3,7\n200,20,4,8\n")
	src, err := sources.ReadContinuumTable(path)
	if err != nil {
		t.Fatalf("ReadContinuumTable: %v", err)
	}
	if diff := cmp.Diff([]string{"H2-H2", "H2-He"}, src.Pairs()); diff != "" {
		t.Fatalf("pairs (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{100, 200}, src.Temperatures("H2-He")); diff != "" {
		t.Fatalf("temperatures (-want +got):\n%s", diff)
	}
	s, ok := src.Spectrum("H2-He", 200)
	if !ok {
		t.Fatal("expected H2-He at 200K")
	}
	if diff := cmp.Diff([]float64{7, 8}, s.Values); diff != "" {
		t.Fatalf("values (-want +got):\n%s", diff)
	}
}

func TestReadOpticalPatch(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "ch4.csv"),
		"temperature,wavenumber,cross_section\n75,15000,1e-25\n75,16000,2e-25\n150,15000,3e-25\n150,16000,4e-25\n")
	src, err := sources.ReadOpticalPatch(path)
	if err != nil {
		t.Fatalf("ReadOpticalPatch: %v", err)
	}
	if diff := cmp.Diff([]float64{75, 150}, src.Temperatures()); diff != "" {
		t.Fatalf("temperatures (-want +got):\n%s", diff)
	}
}

func TestReadStaticPatchConvertsWavelength(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "o3.csv"),
		"wavelength,cross_section\n0.5,1e-21\n0.25,2e-21\n")
	s, err := sources.ReadStaticPatch(path)
	if err != nil {
		t.Fatalf("ReadStaticPatch: %v", err)
	}
	want := []float64{20000, 40000}
	for i := range want {
		if math.Abs(s.Wavenumbers[i]-want[i]) > 1e-9 {
			t.Fatalf("wavenumber[%d] = %g, want %g", i, s.Wavenumbers[i], want[i])
		}
	}
}
