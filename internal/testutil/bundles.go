// Package testutil builds bundle fixtures in memory for tests.
package testutil

import (
	"bytes"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
)

// Entry is one file to place in a fixture archive
type Entry struct {
	Name string
	Body string
}

// BuildArchive writes entries, in order, to a ZIP archive. Files are
// deflated and followed by data descriptors, the way streaming JAR tools
// write them.
func BuildArchive(t testing.TB, entries ...Entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		method := zip.Deflate
		if strings.HasSuffix(e.Name, "/") {
			method = zip.Store
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.Name, Method: method})
		if err != nil {
			t.Fatalf("failed to create %s: %v", e.Name, err)
		}
		if _, err := w.Write([]byte(e.Body)); err != nil {
			t.Fatalf("failed to write %s: %v", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close archive: %v", err)
	}
	return buf.Bytes()
}

// Manifest renders a JAR manifest from name/value pairs
func Manifest(pairs ...string) string {
	var sb strings.Builder
	sb.WriteString("Manifest-Version: 1.0\r\n")
	for i := 0; i+1 < len(pairs); i += 2 {
		fmt.Fprintf(&sb, "%s: %s\r\n", pairs[i], pairs[i+1])
	}
	sb.WriteString("\r\n")
	return sb.String()
}

// NarManifest is the manifest of the standard fixture NAR: nifi-foo-nar
// 1.8.0 depending on nifi-bar-nar 2.0.0.
func NarManifest(timestamp string) string {
	return Manifest(
		"Nar-Group", "org.apache.nifi",
		"Nar-Id", "nifi-foo-nar",
		"Nar-Version", "1.8.0",
		"Nar-Dependency-Group", "org.apache.nifi",
		"Nar-Dependency-Id", "nifi-bar-nar",
		"Nar-Dependency-Version", "2.0.0",
		"Build-Branch", "NIFI-1234",
		"Build-Tag", "HEAD",
		"Build-Revision", "a032175",
		"Build-Timestamp", timestamp,
		"Build-Jdk", "1.8.0_181",
		"Built-By", "jsmith",
	)
}

// Extension is a fixture extension for ExtensionDocsXML
type Extension struct {
	Name        string
	Type        string
	Description string
	Tags        []string
}

// ExtensionDocsXML renders an extension-docs descriptor
func ExtensionDocsXML(apiVersion string, extensions ...Extension) string {
	var sb strings.Builder
	sb.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<extensions>\n")
	fmt.Fprintf(&sb, "  <nifiApiVersion>%s</nifiApiVersion>\n", apiVersion)
	for _, e := range extensions {
		sb.WriteString("  <extension>\n")
		fmt.Fprintf(&sb, "    <name>%s</name>\n", e.Name)
		fmt.Fprintf(&sb, "    <type>%s</type>\n", e.Type)
		fmt.Fprintf(&sb, "    <description>%s</description>\n", e.Description)
		if len(e.Tags) > 0 {
			sb.WriteString("    <tags>\n")
			for _, tag := range e.Tags {
				fmt.Fprintf(&sb, "      <tag>%s</tag>\n", tag)
			}
			sb.WriteString("    </tags>\n")
		}
		sb.WriteString("  </extension>\n")
	}
	sb.WriteString("</extensions>\n")
	return sb.String()
}

// Extensions returns n processors named org.apache.nifi.processors.<prefix>N
func Extensions(prefix string, n int) []Extension {
	exts := make([]Extension, 0, n)
	for i := 0; i < n; i++ {
		exts = append(exts, Extension{
			Name:        fmt.Sprintf("org.apache.nifi.processors.%s%d", prefix, i),
			Type:        "PROCESSOR",
			Description: fmt.Sprintf("Processor number %d", i),
			Tags:        []string{prefix, "fixture"},
		})
	}
	return exts
}

// AdditionalDetailsHTML is the body used for additional-details entries
func AdditionalDetailsHTML(extension string) string {
	return fmt.Sprintf("<!DOCTYPE html>\n<html lang=\"en\">\n<head><title>%s</title></head>\n<body><p>Usage notes</p></body>\n</html>\n", extension)
}

// NarFixture builds a NAR declaring extensionCount processors, the first
// detailsCount of which carry an additionalDetails.html page.
func NarFixture(t testing.TB, extensionCount, detailsCount int) []byte {
	t.Helper()

	exts := Extensions("Foo", extensionCount)
	entries := []Entry{
		{Name: "META-INF/"},
		{Name: "META-INF/MANIFEST.MF", Body: NarManifest("2018-08-21T14:12:55Z")},
		{Name: "META-INF/bundled-dependencies/"},
		{Name: "META-INF/bundled-dependencies/nifi-foo-processors-1.8.0.jar", Body: "not really a jar"},
		{Name: "META-INF/docs/"},
		{Name: "META-INF/docs/extension-docs.xml", Body: ExtensionDocsXML("1.8.0", exts...)},
	}
	for i := 0; i < detailsCount && i < len(exts); i++ {
		entries = append(entries, Entry{
			Name: "META-INF/docs/additional-details/" + exts[i].Name + "/additionalDetails.html",
			Body: AdditionalDetailsHTML(exts[i].Name),
		})
	}
	return BuildArchive(t, entries...)
}

// NativeFixture places payload after a pseudo-random executable body that
// never contains a ZIP local file header.
func NativeFixture(payload []byte, prefixLen int) []byte {
	rng := rand.New(rand.NewSource(int64(prefixLen)))
	prefix := make([]byte, prefixLen)
	for i := range prefix {
		b := byte(rng.Intn(256))
		if b == 'P' {
			b = 'Q'
		}
		prefix[i] = b
	}
	copy(prefix, []byte{0x7F, 'E', 'L', 'F'})
	return append(prefix, payload...)
}

// MinifiManifest is the manifest of a native bundle, whose build timestamp
// is epoch milliseconds.
func MinifiManifest() string {
	return Manifest(
		"Nar-Group", "org.apache.nifi.minifi",
		"Nar-Id", "minifi-system",
		"Nar-Version", "0.6.0",
		"Build-Branch", "main",
		"Build-Revision", "c9ab58d",
		"Build-Timestamp", "1548689225000",
		"Build-Jdk", "gcc 8.2.1",
		"Built-By", "minifi",
	)
}
