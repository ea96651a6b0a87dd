package course

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

var (
	courseTitleRe      = regexp.MustCompile(`(?i)^course title:\s*(.+)$`)
	courseLinkRe       = regexp.MustCompile(`(?i)^course link:\s*(.+)$`)
	courseInstructorRe = regexp.MustCompile(`(?i)^course instructor:\s*(.+)$`)
	lessonRe           = regexp.MustCompile(`(?i)^lesson\s+(\d+):\s*(.+)$`)
	lessonLinkRe       = regexp.MustCompile(`(?i)^lesson link:\s*(.+)$`)
)

// ParseDocument reads a course document. The header lines (Course Title,
// Course Link, Course Instructor) may appear in any order before the first
// lesson marker. fallbackTitle is used when there's no Course Title line.
//
// A document with no "Lesson N: title" markers yields a single body without
// a lesson number.
func ParseDocument(r io.Reader, fallbackTitle string) (*Course, []LessonBody, error) {
	c := &Course{Lessons: []Lesson{}}
	var bodies []LessonBody
	var preamble []string

	var current *LessonBody
	var currentText []string
	flush := func() {
		if current == nil {
			return
		}
		current.Text = strings.TrimSpace(strings.Join(currentText, "\n"))
		if current.Text != "" {
			bodies = append(bodies, *current)
		}
		current = nil
		currentText = nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)

		if current == nil && len(c.Lessons) == 0 {
			if m := courseTitleRe.FindStringSubmatch(trimmed); m != nil {
				c.Title = strings.TrimSpace(m[1])
				continue
			}
			if m := courseLinkRe.FindStringSubmatch(trimmed); m != nil {
				c.Link = strings.TrimSpace(m[1])
				continue
			}
			if m := courseInstructorRe.FindStringSubmatch(trimmed); m != nil {
				c.Instructor = strings.TrimSpace(m[1])
				continue
			}
		}

		if m := lessonRe.FindStringSubmatch(trimmed); m != nil {
			flush()
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, nil, fmt.Errorf("invalid lesson number %q: %w", m[1], err)
			}
			c.Lessons = append(c.Lessons, Lesson{Number: n, Title: strings.TrimSpace(m[2])})
			num := n
			current = &LessonBody{LessonNumber: &num}
			continue
		}

		if current != nil {
			if m := lessonLinkRe.FindStringSubmatch(trimmed); m != nil && len(currentText) == 0 {
				c.Lessons[len(c.Lessons)-1].Link = strings.TrimSpace(m[1])
				continue
			}
			currentText = append(currentText, line)
			continue
		}

		preamble = append(preamble, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read course document: %w", err)
	}
	flush()

	if c.Title == "" {
		c.Title = strings.TrimSpace(fallbackTitle)
	}
	if c.Title == "" {
		return nil, nil, fmt.Errorf("course document has no title")
	}

	if len(c.Lessons) == 0 {
		text := strings.TrimSpace(strings.Join(preamble, "\n"))
		if text != "" {
			bodies = append(bodies, LessonBody{Text: text})
		}
	}

	return c, bodies, nil
}
