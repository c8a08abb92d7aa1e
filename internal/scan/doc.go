// Package scan builds the resolved image set of a dataset.
//
// In filesystem mode every file with an allowed extension under the images
// directory is an image, optionally labeled by its first-level
// subdirectory. In manifest mode a delimited label file is joined with the
// files on disk: each row's reference is resolved to a path (absolute,
// dataset-relative, images-relative, or by stem for extension-less ids),
// unresolved rows become missing references, and unreferenced files become
// orphans.
//
// Scanning is synchronous and deterministic. The only errors returned are
// configuration errors (an unreadable manifest or images directory, an
// unresolvable column) and context cancellation; every per-row problem is
// recorded in the result.
package scan
