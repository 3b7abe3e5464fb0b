package main

// semVer is overridden at build time via
// -ldflags "-X main.semVer=x.y.z".
var semVer = "0.1.0"

func SemVer() string {
	return "v" + semVer
}
