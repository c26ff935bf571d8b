// ABOUTME: Version information for the MBE encoder library
// ABOUTME: Reported to C callers through MBEEncoder_Version
package version

const (
	// Product is the library name
	Product = "mbe-go"

	// Version is the library release
	Version = "0.3.0"
)

// String returns "product/version" as reported over the C boundary.
func String() string {
	return Product + "/" + Version
}
