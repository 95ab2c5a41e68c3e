package capsule

// AssetWriter persists fetched asset bytes under the active asset
// directory and translates stored filenames into the relative paths used
// when rewriting markup and stylesheet text.
type AssetWriter interface {
	// Write stores data under name, resolving filename collisions, and
	// returns the filename actually used.
	Write(name string, data []byte) (string, error)

	// Rel returns the reference path for a stored filename, e.g.
	// "assets/<file>" in per-capture mode or "../global_assets/<file>" in
	// global mode.
	Rel(filename string) string
}
