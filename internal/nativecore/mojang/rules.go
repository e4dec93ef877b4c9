package mojang

import (
	"regexp"
	goruntime "runtime"
	"strings"
)

// Environment is what rules are evaluated against.
type Environment struct {
	OS        string
	OSVersion string
	Arch      string
	Features  map[string]bool
}

// CurrentEnvironment describes the host with the features every launch enables.
func CurrentEnvironment() Environment {
	return Environment{
		OS:   osName(goruntime.GOOS),
		Arch: archName(goruntime.GOARCH),
		Features: map[string]bool{
			"has_custom_resolution": true,
		},
	}
}

func osName(goos string) string {
	switch goos {
	case "darwin":
		return "osx"
	default:
		return goos
	}
}

func archName(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	case "386":
		return "x86"
	default:
		return goarch
	}
}

func (r *Rule) matches(env Environment) bool {
	if r.OS != nil {
		if r.OS.Name != "" && r.OS.Name != env.OS {
			return false
		}
		if r.OS.Arch != "" && r.OS.Arch != env.Arch {
			return false
		}
		if r.OS.Version != "" && env.OSVersion != "" {
			re, err := regexp.Compile(r.OS.Version)
			if err != nil || !re.MatchString(env.OSVersion) {
				return false
			}
		}
	}
	for feature, want := range r.Features {
		if env.Features[feature] != want {
			return false
		}
	}
	return true
}

// Allowed evaluates rules in order; the last matching rule decides. With no rules
// everything is allowed, with rules nothing is allowed unless a rule says so.
func Allowed(rules []Rule, env Environment) bool {
	if len(rules) == 0 {
		return true
	}
	allowed := false
	for i := range rules {
		if rules[i].matches(env) {
			allowed = rules[i].Action == "allow"
		}
	}
	return allowed
}

// nativeClassifier returns the classifier of a natives library for env, with the
// ${arch} placeholder resolved to the pointer width.
func nativeClassifier(lib *Library, env Environment) (string, bool) {
	classifier, ok := lib.Natives[env.OS]
	if !ok {
		return "", false
	}
	bits := "64"
	if env.Arch == "x86" {
		bits = "32"
	}
	return strings.ReplaceAll(classifier, "${arch}", bits), true
}
