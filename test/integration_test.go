package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/klauspost/compress/zstd"
	"github.com/ralt/bundlemeta/internal/signer"
	"github.com/ralt/bundlemeta/internal/testutil"
)

// TestIntegration builds the bundlemeta binary and runs it against a
// directory of NAR, compressed NAR and MiNiFi C++ fixtures
func TestIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("Go toolchain not available, skipping integration tests")
	}

	// Get project root
	projectRoot, err := getProjectRoot()
	if err != nil {
		t.Fatalf("Failed to find project root: %v", err)
	}

	// Build bundlemeta binary
	t.Log("Building bundlemeta binary...")
	bin := filepath.Join(t.TempDir(), "bundlemeta")
	if err := buildBundlemeta(projectRoot, bin); err != nil {
		t.Fatalf("Failed to build bundlemeta: %v", err)
	}

	inputDir := t.TempDir()
	writeFixtures(t, inputDir)
	keyPath := writeSigningKey(t)

	t.Run("Generate", func(t *testing.T) {
		testGenerate(t, bin, inputDir, keyPath)
	})

	t.Run("Inspect", func(t *testing.T) {
		testInspect(t, bin, inputDir)
	})
}

func testGenerate(t *testing.T, bin, inputDir, keyPath string) {
	outputDir := filepath.Join(t.TempDir(), "catalog")

	// Generate a signed catalog
	t.Log("Generating catalog with 2 bundles...")
	run(t, bin, "generate", "--input-dir", inputDir, "--output-dir", outputDir, "--gpg-key", keyPath, "--reverse-search")

	// Verify catalog structure
	expectedFiles := []string{
		"index.json",
		"index.json.gz",
		"index.json.asc",
		"KEY.asc",
		"bundles/org.apache.nifi/nifi-foo-nar/1.8.0/nifi-foo-nar-1.8.0.nar",
		"bundles/org.apache.nifi/nifi-foo-nar/1.8.0/bundle.yaml",
		"bundles/org.apache.nifi/nifi-foo-nar/1.8.0/extension-docs.xml",
		"bundles/org.apache.nifi/nifi-foo-nar/1.8.0/additional-details/org.apache.nifi.processors.Foo0/additionalDetails.html",
		"bundles/org.apache.nifi.minifi/minifi-system/0.6.0/minifi.zst",
	}
	for _, file := range expectedFiles {
		if _, err := os.Stat(filepath.Join(outputDir, file)); os.IsNotExist(err) {
			t.Errorf("Expected file not found: %s", file)
		}
	}

	// Verify the signature
	var files [3][]byte
	for i, name := range []string{"index.json", "index.json.asc", "KEY.asc"} {
		data, err := os.ReadFile(filepath.Join(outputDir, name))
		if err != nil {
			t.Fatalf("Failed to read %s: %v", name, err)
		}
		files[i] = data
	}
	if err := signer.VerifyDetached(files[2], files[0], files[1]); err != nil {
		t.Errorf("Index signature does not verify: %v", err)
	}

	// Verify index contents
	var parsed struct {
		Bundles []struct {
			Coordinate struct {
				ArtifactID string `json:"artifactId"`
			} `json:"coordinate"`
			Extensions []json.RawMessage `json:"extensions"`
		} `json:"bundles"`
	}
	if err := json.Unmarshal(files[0], &parsed); err != nil {
		t.Fatalf("Failed to parse index: %v", err)
	}
	if len(parsed.Bundles) != 2 {
		t.Fatalf("Expected 2 bundles in index, got %d", len(parsed.Bundles))
	}
	for i, want := range []struct {
		artifact   string
		extensions int
	}{
		{"minifi-system", 14},
		{"nifi-foo-nar", 10},
	} {
		b := parsed.Bundles[i]
		if b.Coordinate.ArtifactID != want.artifact {
			t.Errorf("Bundle %d: expected %s, got %s", i, want.artifact, b.Coordinate.ArtifactID)
		}
		if len(b.Extensions) != want.extensions {
			t.Errorf("Bundle %s: expected %d extensions, got %d", want.artifact, want.extensions, len(b.Extensions))
		}
	}

	t.Logf("Catalog generation test passed")
}

func testInspect(t *testing.T, bin, inputDir string) {
	out := run(t, bin, "inspect", "--format", "json", "--type", "minifi-cpp", filepath.Join(inputDir, "minifi.zst"))

	var reports []struct {
		Type  string `json:"type"`
		Build struct {
			Tool string `json:"tool"`
		} `json:"build"`
	}
	if err := json.Unmarshal(out, &reports); err != nil {
		t.Fatalf("Failed to parse inspect output: %v\n%s", err, out)
	}
	if len(reports) != 1 {
		t.Fatalf("Expected 1 report, got %d", len(reports))
	}
	if reports[0].Type != "minifi-cpp" {
		t.Errorf("Expected type minifi-cpp, got %s", reports[0].Type)
	}
	if reports[0].Build.Tool != "gcc 8.2.1" {
		t.Errorf("Expected tool gcc 8.2.1, got %s", reports[0].Build.Tool)
	}
}

func writeFixtures(t *testing.T, dir string) {
	t.Helper()

	write := func(name string, data []byte, perm os.FileMode) {
		if err := os.WriteFile(filepath.Join(dir, name), data, perm); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	write("nifi-foo-nar-1.8.0.nar", testutil.NarFixture(t, 10, 3), 0644)

	payload := testutil.BuildArchive(t,
		testutil.Entry{Name: "META-INF/MANIFEST.MF", Body: testutil.MinifiManifest()},
		testutil.Entry{Name: "META-INF/docs/extension-docs.xml", Body: testutil.ExtensionDocsXML("0.6.0", testutil.Extensions("Minifi", 14)...)},
	)
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("Failed to create zstd writer: %v", err)
	}
	if _, err := zw.Write(testutil.NativeFixture(payload, 256*1024)); err != nil {
		t.Fatalf("Failed to compress native fixture: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to close zstd writer: %v", err)
	}
	write("minifi.zst", buf.Bytes(), 0755)

	write("README", []byte("fixtures"), 0644)
}

func writeSigningKey(t *testing.T) string {
	t.Helper()

	entity, err := openpgp.NewEntity("Bundlemeta Test", "", "test@example.com", nil)
	if err != nil {
		t.Fatalf("Failed to create key: %v", err)
	}

	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PrivateKeyType, nil)
	if err != nil {
		t.Fatalf("Failed to armor key: %v", err)
	}
	if err := entity.SerializePrivate(w, nil); err != nil {
		t.Fatalf("Failed to serialize key: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close armor: %v", err)
	}

	path := filepath.Join(t.TempDir(), "key.asc")
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		t.Fatalf("Failed to write key: %v", err)
	}
	return path
}

func run(t *testing.T, bin string, args ...string) []byte {
	t.Helper()
	cmd := exec.Command(bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("bundlemeta %v failed: %v\nOutput: %s", args, err, stderr.String())
	}
	return stdout.Bytes()
}

func getProjectRoot() (string, error) {
	// Try to find go.mod
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("could not find project root (go.mod)")
}

func buildBundlemeta(projectRoot, out string) error {
	cmd := exec.Command("go", "build", "-o", out, "./cmd/bundlemeta")
	cmd.Dir = projectRoot
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
