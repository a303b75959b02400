package fleet

import (
	"slices"
	"testing"
)

func TestExpandTargets(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		want    []string
		wantErr bool
	}{
		{
			name:  "single addresses",
			input: []string{"10.0.0.2", "panel.local"},
			want:  []string{"10.0.0.2", "panel.local"},
		},
		{
			name:  "comma list",
			input: []string{"10.0.0.2, 10.0.0.3"},
			want:  []string{"10.0.0.2", "10.0.0.3"},
		},
		{
			name:  "network hosts only",
			input: []string{"192.168.1.0/30"},
			want:  []string{"192.168.1.1", "192.168.1.2"},
		},
		{
			name:  "unmasked prefix",
			input: []string{"192.168.1.7/29"},
			want:  []string{"192.168.1.1", "192.168.1.2", "192.168.1.3", "192.168.1.4", "192.168.1.5", "192.168.1.6"},
		},
		{
			name:  "point to point",
			input: []string{"10.1.1.0/31"},
			want:  []string{"10.1.1.0", "10.1.1.1"},
		},
		{
			name:  "single host prefix",
			input: []string{"10.1.1.5/32"},
			want:  []string{"10.1.1.5"},
		},
		{
			name:  "duplicates keep first position",
			input: []string{"192.168.1.2", "192.168.1.0/30", "192.168.1.2"},
			want:  []string{"192.168.1.2", "192.168.1.1"},
		},
		{
			name:  "blank entries",
			input: []string{"", " , 10.0.0.2"},
			want:  []string{"10.0.0.2"},
		},
		{
			name:    "invalid network",
			input:   []string{"10.0.0.0/33"},
			wantErr: true,
		},
		{
			name:    "too large",
			input:   []string{"10.0.0.0/8"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandTargets(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExpandTargets() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !slices.Equal(got, tt.want) {
				t.Errorf("ExpandTargets() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReadTargets(t *testing.T) {
	data := []byte("# lobby panels\n10.0.0.2\n\n  10.0.0.3  \n#10.0.0.4\n10.0.1.0/30\n")
	want := []string{"10.0.0.2", "10.0.0.3", "10.0.1.0/30"}

	if got := ReadTargets(data); !slices.Equal(got, want) {
		t.Errorf("ReadTargets() = %v, want %v", got, want)
	}
}
