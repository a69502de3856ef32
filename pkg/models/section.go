package models

import (
	"fmt"
	"strconv"
	"strings"
)

const SectionSummary = "summary"

// Section addresses an optimizable part of a resume: the summary, or the
// description of one experience entry.
type Section struct {
	Summary         bool
	ExperienceIndex int
}

// ParseSection parses "summary" or "experience-<n>" with n >= 0.
func ParseSection(key string) (Section, error) {
	if key == SectionSummary {
		return Section{Summary: true}, nil
	}
	rest, ok := strings.CutPrefix(key, "experience-")
	if !ok || rest == "" {
		return Section{}, fmt.Errorf("unknown section %q", key)
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 || strconv.Itoa(n) != rest {
		return Section{}, fmt.Errorf("invalid experience index in %q", key)
	}
	return Section{ExperienceIndex: n}, nil
}

func (s Section) String() string {
	if s.Summary {
		return SectionSummary
	}
	return "experience-" + strconv.Itoa(s.ExperienceIndex)
}

// Fits reports whether the section exists in c.
func (s Section) Fits(c ResumeContent) bool {
	return s.Summary || s.ExperienceIndex < len(c.Experience)
}

// Text returns the current text of the section in c. The section must fit.
func (s Section) Text(c ResumeContent) string {
	if s.Summary {
		return c.Basics.Summary
	}
	return c.Experience[s.ExperienceIndex].Description
}
