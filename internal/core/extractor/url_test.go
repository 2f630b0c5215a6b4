package extractor

import "testing"

func TestParseVideoID(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{
			name: "Watch URL",
			url:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "Watch URL with playlist context",
			url:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PLabc&index=3",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "Short URL",
			url:  "https://youtu.be/dQw4w9WgXcQ",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "Short URL with query",
			url:  "https://youtu.be/dQw4w9WgXcQ?t=42",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "Shorts URL",
			url:  "https://www.youtube.com/shorts/dQw4w9WgXcQ",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "Embed URL",
			url:  "https://www.youtube.com/embed/dQw4w9WgXcQ",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "Music host",
			url:  "https://music.youtube.com/watch?v=dQw4w9WgXcQ",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "Mobile host",
			url:  "https://m.youtube.com/watch?v=dQw4w9WgXcQ",
			want: "dQw4w9WgXcQ",
		},
		{
			name:    "Playlist only",
			url:     "https://www.youtube.com/playlist?list=PLabc",
			wantErr: true,
		},
		{
			name:    "Wrong host",
			url:     "https://vimeo.com/watch?v=dQw4w9WgXcQ",
			wantErr: true,
		},
		{
			name:    "Short ID",
			url:     "https://youtu.be/tooshort",
			wantErr: true,
		},
		{
			name:    "Empty",
			url:     "",
			wantErr: true,
		},
		{
			name:    "Not a URL",
			url:     "://bad",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVideoID(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseVideoID(%q) = %q; want error", tt.url, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseVideoID(%q) error: %v", tt.url, err)
			}
			if got != tt.want {
				t.Errorf("ParseVideoID(%q) = %q; want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestParsePlaylistID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "Playlist URL",
			url:  "https://www.youtube.com/playlist?list=PLabc123",
			want: "PLabc123",
		},
		{
			name: "Watch URL with list",
			url:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PLabc123",
			want: "PLabc123",
		},
		{
			name: "No list param",
			url:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			want: "",
		},
		{
			name: "Wrong host",
			url:  "https://example.com/playlist?list=PLabc123",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParsePlaylistID(tt.url); got != tt.want {
				t.Errorf("ParsePlaylistID(%q) = %q; want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestIsValidURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"Video", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"Playlist", "https://www.youtube.com/playlist?list=PLabc", true},
		{"Radio mix", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=RDdQw4w9WgXcQ&start_radio=1", true},
		{"Channel page", "https://www.youtube.com/@somechannel", false},
		{"Other site", "https://example.com/watch?v=dQw4w9WgXcQ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidURL(tt.url); got != tt.want {
				t.Errorf("IsValidURL(%q) = %v; want %v", tt.url, got, tt.want)
			}
		})
	}
}
