package version

// Version is the current version of disklayer.
// Bump it for each release that changes behavior.
// Use semantic versioning: MAJOR.MINOR.PATCH
const Version = "0.3.0"
