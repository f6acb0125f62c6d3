// Package validate implements the input validators: branch names,
// commit messages, tokens, Slack channels, URLs, Discord webhooks, and
// file paths. Each returns a Result carrying the trimmed value on
// success or a human-facing (Japanese) error on failure.
package validate

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Result is the uniform return shape for every validator in this
// package.
type Result struct {
	Valid bool
	Value string
	Err   string
}

func ok(value string) Result      { return Result{Valid: true, Value: value} }
func fail(msg string) Result      { return Result{Valid: false, Err: msg} }

var (
	branchForbiddenChars = regexp.MustCompile(`[~^:?*\[\]` + "`" + `]`)
	slackChannelPattern  = regexp.MustCompile(`^#[a-z0-9_-]+$`)
	discordWebhookPath   = regexp.MustCompile(`^https://discord\.com/api/webhooks/\d+/[\w-]+$`)
	classicTokenPattern  = regexp.MustCompile(`^ghp_[A-Za-z0-9]{36}$`)
	fineGrainedPattern   = regexp.MustCompile(`^github_pat_[A-Za-z0-9_]{82}$`)
)

// BranchName validates a branch name: trimmed, length 1-100, reject
// whitespace, "..", forbidden chars, leading/trailing "-", exact
// "HEAD" (case-insensitive), leading/trailing ".", trailing "/",
// leading "/", consecutive "//".
func BranchName(raw string) Result {
	trimmed := strings.TrimSpace(raw)

	if trimmed == "" {
		return fail("ブランチ名を入力してください")
	}
	if len(trimmed) > 100 {
		return fail("ブランチ名は100文字以内で入力してください")
	}
	if strings.ContainsAny(trimmed, " \t\n\r") {
		return fail("ブランチ名に空白を含めることはできません")
	}
	if strings.Contains(trimmed, "..") {
		return fail("ブランチ名に'..'を含めることはできません")
	}
	if branchForbiddenChars.MatchString(trimmed) {
		return fail("ブランチ名に使用できない文字が含まれています（~ ^ : ? * [ ] ` ）")
	}
	if strings.HasPrefix(trimmed, "-") || strings.HasSuffix(trimmed, "-") {
		return fail("ブランチ名の先頭または末尾に'-'を使用できません")
	}
	if strings.EqualFold(trimmed, "HEAD") {
		return fail("ブランチ名に'HEAD'は使用できません")
	}
	if strings.HasPrefix(trimmed, ".") || strings.HasSuffix(trimmed, ".") {
		return fail("ブランチ名の先頭または末尾に'.'を使用できません")
	}
	if strings.HasSuffix(trimmed, "/") || strings.HasPrefix(trimmed, "/") {
		return fail("ブランチ名の先頭または末尾に'/'を使用できません")
	}
	if strings.Contains(trimmed, "//") {
		return fail("ブランチ名に連続する'//'を含めることはできません")
	}

	return ok(trimmed)
}

// CommitMessage validates a commit message: trimmed, length 5-200.
func CommitMessage(raw string) Result {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) < 5 || len(trimmed) > 200 {
		return fail("コミットメッセージは5文字以上200文字以内で入力してください")
	}
	return ok(trimmed)
}

// Token validates a GitHub PAT: either classic (ghp_ + 36 alphanumerics)
// or fine-grained (github_pat_ + 82 chars including underscores).
func Token(raw string) Result {
	trimmed := strings.TrimSpace(raw)
	if classicTokenPattern.MatchString(trimmed) || fineGrainedPattern.MatchString(trimmed) {
		return ok(trimmed)
	}
	return fail("トークンの形式が正しくありません（ghp_... または github_pat_... である必要があります）")
}

// SlackChannel validates a Slack channel name: "#" is prepended if
// absent, length 2-22, matches #[a-z0-9_-]+.
func SlackChannel(raw string) Result {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fail("Slackチャンネル名を入力してください")
	}
	if !strings.HasPrefix(trimmed, "#") {
		trimmed = "#" + trimmed
	}
	if len(trimmed) < 2 || len(trimmed) > 22 {
		return fail("Slackチャンネル名は2文字以上22文字以内で入力してください")
	}
	if !slackChannelPattern.MatchString(trimmed) {
		return fail("Slackチャンネル名は英小文字・数字・'_'・'-'のみ使用できます")
	}
	return ok(trimmed)
}

// URL validates that raw parses as a URL. If requireScheme is set,
// the scheme must be non-empty.
func URL(raw string, requireScheme bool) Result {
	trimmed := strings.TrimSpace(raw)
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return fail(fmt.Sprintf("URLの形式が正しくありません: %v", err))
	}
	if requireScheme && parsed.Scheme == "" {
		return fail("URLにはスキーム（http://など）が必要です")
	}
	return ok(trimmed)
}

// DiscordWebhookURL validates a Discord webhook URL: must be a valid
// URL and match the Discord webhook path shape.
func DiscordWebhookURL(raw string) Result {
	trimmed := strings.TrimSpace(raw)
	if res := URL(trimmed, true); !res.Valid {
		return res
	}
	if !discordWebhookPath.MatchString(trimmed) {
		return fail("Discord WebhookのURL形式が正しくありません")
	}
	return ok(trimmed)
}

// forbiddenPathPrefixes are absolute path prefixes a file path must
// never resolve under.
var forbiddenPathPrefixes = []string{"/etc", "/root", "/var/log"}

// FilePath validates a file path: reject ".." traversal, sensitive
// absolute prefixes, and embedded null bytes.
func FilePath(raw string) Result {
	if strings.ContainsRune(raw, 0) {
		return fail("ファイルパスにNULL文字を含めることはできません")
	}
	if strings.Contains(raw, "..") {
		return fail("ファイルパスに'..'を含めることはできません")
	}
	for _, prefix := range forbiddenPathPrefixes {
		if strings.HasPrefix(raw, prefix) {
			return fail(fmt.Sprintf("ファイルパスに'%s'以下を指定することはできません", prefix))
		}
	}
	return ok(raw)
}
