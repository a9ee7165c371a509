package installer

// Compression names the archive format a download task uses. Mirrors
// bisect.Compression; kept as a distinct type so installer has no import
// dependency on internal/bisect (which itself depends on installer through
// the orchestrator).
type Compression string

// Archive compression formats the installer knows how to decompress.
const (
	CompressionXZ Compression = "xz"
	CompressionGZ Compression = "gz"
)

// DownloadTask describes one archive to fetch and unpack. Field-for-field
// equivalent to bisect.DownloadTask; the orchestrator converts between the
// two at the package boundary.
type DownloadTask struct {
	Component    string
	URL          string
	Compression  Compression
	InnerRoot    string
	KeepSubpaths []string
}
