package chromedpexec

import (
	"fmt"
	"instagrow/executor"
	"math"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// ParseProfilePage extracts profile attributes from the meta tags of a
// profile page. The description meta carries the counts in the form
// "1,234 Followers, 56 Following, 78 Posts - ... (@username)".
func ParseProfilePage(pageHTML string) (*executor.ProfileAttributes, error) {
	root, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page html: %w", err)
	}
	description := findMetaContent(root, "og:description")
	if description == "" {
		return nil, fmt.Errorf("profile description meta not found")
	}
	attrs := &executor.ProfileAttributes{}
	if err := parseProfileDescription(description, attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

func findMetaContent(node *html.Node, property string) string {
	if node.Type == html.ElementNode && node.Data == "meta" {
		var prop, content string
		for _, attr := range node.Attr {
			switch attr.Key {
			case "property", "name":
				prop = attr.Val
			case "content":
				content = attr.Val
			}
		}
		if prop == property {
			return content
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if content := findMetaContent(child, property); content != "" {
			return content
		}
	}
	return ""
}

func parseProfileDescription(description string, attrs *executor.ProfileAttributes) error {
	fields := strings.Fields(description)
	for i := 0; i+1 < len(fields); i++ {
		label := strings.TrimSuffix(strings.ToLower(fields[i+1]), ",")
		switch label {
		case "followers", "follower":
			count, err := ParseCompactCount(fields[i])
			if err != nil {
				return fmt.Errorf("failed to parse follower count: %w", err)
			}
			attrs.FollowerCount = count
		case "following":
			count, err := ParseCompactCount(fields[i])
			if err != nil {
				return fmt.Errorf("failed to parse following count: %w", err)
			}
			attrs.FollowingCount = count
		}
	}
	if at := strings.LastIndex(description, "(@"); at >= 0 {
		rest := description[at+2:]
		if end := strings.IndexByte(rest, ')'); end > 0 {
			attrs.Username = rest[:end]
		}
	}
	return nil
}

// ParseCompactCount parses a count as the platform renders it: "1,234",
// "10.5k" or "2.1m". Suffixes are case-insensitive.
func ParseCompactCount(s string) (int, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, fmt.Errorf("empty count")
	}
	multiplier := 1.0
	switch s[len(s)-1] {
	case 'k', 'K':
		multiplier = 1e3
		s = s[:len(s)-1]
	case 'm', 'M':
		multiplier = 1e6
		s = s[:len(s)-1]
	case 'b', 'B':
		multiplier = 1e9
		s = s[:len(s)-1]
	}
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed count %q: %w", s, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("negative count %q", s)
	}
	return int(math.Round(value * multiplier)), nil
}
