// ABOUTME: Version information for spotifyblob
// ABOUTME: Product identity reported to the streaming SDK as its user agent
package version

const (
	// Version is the current release
	Version = "0.3.0"

	// Product is the product name
	Product = "spotifyblob"

	// Manufacturer identifies who ships the bridge
	Manufacturer = "spotblob"
)

// UserAgent is the SDK user agent string
func UserAgent() string {
	return Product + "/" + Version
}
