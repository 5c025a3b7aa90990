package render

// Version is the build version stamped via -ldflags at release time
var Version = "dev"
