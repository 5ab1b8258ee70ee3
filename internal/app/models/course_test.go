package models

import (
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestCourse_Validate(t *testing.T) {
	valid := Course{Code: "CS101", Title: "Introduction to Computer Science", Credits: 3}

	if violations := valid.Validate(); len(violations) != 0 {
		t.Fatalf("Validate() on valid course = %v, want none", violations)
	}

	t.Run("missing code and title", func(t *testing.T) {
		c := Course{Credits: 3}
		violations := c.Validate()
		if len(violations) != 2 {
			t.Fatalf("Validate() returned %d violations, want 2: %v", len(violations), violations)
		}
	})

	t.Run("code too long", func(t *testing.T) {
		c := valid
		c.Code = strings.Repeat("X", MaxCourseCodeLength+1)
		violations := c.Validate()
		if len(violations) != 1 || violations[0].Field != "code" {
			t.Errorf("Validate() = %v, want single code violation", violations)
		}
	})

	t.Run("description too long", func(t *testing.T) {
		c := valid
		c.Description = strPtr(strings.Repeat("d", MaxCourseDescriptionLength+1))
		violations := c.Validate()
		if len(violations) != 1 || violations[0].Field != "description" {
			t.Errorf("Validate() = %v, want single description violation", violations)
		}
	})

	t.Run("multibyte description at the limit is valid", func(t *testing.T) {
		c := valid
		c.Description = strPtr(strings.Repeat("ü", MaxCourseDescriptionLength))
		if violations := c.Validate(); len(violations) != 0 {
			t.Errorf("Validate() = %v, want none for a %d-character description", violations, MaxCourseDescriptionLength)
		}
	})

	t.Run("nil description is allowed", func(t *testing.T) {
		c := valid
		c.Description = nil
		if violations := c.Validate(); len(violations) != 0 {
			t.Errorf("Validate() = %v, want none", violations)
		}
	})

	t.Run("credits out of range", func(t *testing.T) {
		for _, credits := range []int{0, MaxCourseCredits + 1, -1} {
			c := valid
			c.Credits = credits
			violations := c.Validate()
			if len(violations) != 1 || violations[0].Field != "credits" {
				t.Errorf("Validate() with credits=%d = %v, want single credits violation", credits, violations)
			}
		}
	})

	t.Run("credits at the boundaries", func(t *testing.T) {
		for _, credits := range []int{MinCourseCredits, MaxCourseCredits} {
			c := valid
			c.Credits = credits
			if violations := c.Validate(); len(violations) != 0 {
				t.Errorf("Validate() with credits=%d = %v, want none", credits, violations)
			}
		}
	})
}
