package version

// CodescanVersion is the current release version, you should update this variable when doing a release
var CodescanVersion = "0.4.0"
