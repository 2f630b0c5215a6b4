package transcript

import (
	"testing"

	"github.com/tubepull/tubepull/internal/core/ytdlp"
)

func TestParseVTT(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name: "Manual subtitles",
			input: "WEBVTT\n" +
				"Kind: captions\n" +
				"Language: en\n" +
				"\n" +
				"00:00:01.000 --> 00:00:03.000\n" +
				"Hello world\n" +
				"\n" +
				"00:00:03.000 --> 00:00:05.000\n" +
				"Second line\n",
			want: "Hello world\nSecond line",
		},
		{
			name: "Auto captions with rolling duplicates",
			input: "WEBVTT\n" +
				"Kind: captions\n" +
				"Language: en\n" +
				"\n" +
				"00:00:00.000 --> 00:00:02.000 align:start position:0%\n" +
				"so<00:00:00.480><c> today</c><00:00:00.719><c> we're</c>\n" +
				"\n" +
				"00:00:02.000 --> 00:00:02.010 align:start position:0%\n" +
				"so today we're\n" +
				"\n" +
				"00:00:02.010 --> 00:00:04.000 align:start position:0%\n" +
				"so today we're\n" +
				"going<00:00:02.480><c> to</c><00:00:02.719><c> talk</c>\n",
			want: "so today we're\ngoing to talk",
		},
		{
			name: "Cue numbers skipped",
			input: "WEBVTT\n" +
				"\n" +
				"1\n" +
				"00:00:01.000 --> 00:00:03.000\n" +
				"First\n" +
				"\n" +
				"2\n" +
				"00:00:03.000 --> 00:00:05.000\n" +
				"Second\n",
			want: "First\nSecond",
		},
		{
			name: "Styling stripped",
			input: "WEBVTT\n" +
				"\n" +
				"00:00:01.000 --> 00:00:03.000\n" +
				"<b>bold</b> and <i>italic</i>\n",
			want: "bold and italic",
		},
		{
			name:  "Empty input",
			input: "",
			want:  "",
		},
		{
			name:  "Header only",
			input: "WEBVTT\nKind: captions\nLanguage: ja\n",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseVTT(tt.input); got != tt.want {
				t.Errorf("parseVTT() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestPickTrack(t *testing.T) {
	track := []ytdlp.SubtitleTrack{{Ext: "vtt"}}
	langs := []string{"ja", "en"}

	tests := []struct {
		name     string
		info     ytdlp.VideoInfo
		wantLang string
		wantType string
	}{
		{
			name:     "Manual ja wins",
			info:     ytdlp.VideoInfo{Subtitles: map[string][]ytdlp.SubtitleTrack{"ja": track, "en": track}},
			wantLang: "ja",
			wantType: "manual",
		},
		{
			name: "Auto ja beats manual en",
			info: ytdlp.VideoInfo{
				Subtitles:         map[string][]ytdlp.SubtitleTrack{"en": track},
				AutomaticCaptions: map[string][]ytdlp.SubtitleTrack{"ja": track},
			},
			wantLang: "ja",
			wantType: "auto",
		},
		{
			name:     "Manual en fallback",
			info:     ytdlp.VideoInfo{Subtitles: map[string][]ytdlp.SubtitleTrack{"en": track}},
			wantLang: "en",
			wantType: "manual",
		},
		{
			name:     "Auto en last",
			info:     ytdlp.VideoInfo{AutomaticCaptions: map[string][]ytdlp.SubtitleTrack{"en": track}},
			wantLang: "en",
			wantType: "auto",
		},
		{
			name:     "Nothing available",
			info:     ytdlp.VideoInfo{AutomaticCaptions: map[string][]ytdlp.SubtitleTrack{"fr": track}},
			wantLang: "",
			wantType: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lang, subType := pickTrack(&tt.info, langs)
			if lang != tt.wantLang || subType != tt.wantType {
				t.Errorf("pickTrack() = (%q, %q); want (%q, %q)", lang, subType, tt.wantLang, tt.wantType)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0s"},
		{59, "59s"},
		{61, "1m01s"},
		{754, "12m34s"},
		{3600, "1h0m00s"},
		{3723.9, "1h2m03s"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.seconds); got != tt.want {
			t.Errorf("formatDuration(%v) = %q; want %q", tt.seconds, got, tt.want)
		}
	}
}
