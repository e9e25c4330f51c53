package bibliography

import (
	"errors"
	"reflect"
	"testing"
)

// fakePages serves canned page text. Pages are numbered from 1.
type fakePages struct {
	plain  []string
	layout []string
	errs   map[int]error
}

func (f *fakePages) NumPages() int { return len(f.plain) }

func (f *fakePages) PageText(n int) (string, error) {
	if err := f.errs[n]; err != nil {
		return "", err
	}
	return f.plain[n-1], nil
}

func (f *fakePages) LayoutText(n int) (string, error) {
	if err := f.errs[n]; err != nil {
		return "", err
	}
	if f.layout == nil {
		return f.plain[n-1], nil
	}
	return f.layout[n-1], nil
}

func TestParsePageRange(t *testing.T) {
	tests := []struct {
		input   string
		want    PageRange
		wantErr bool
	}{
		{input: "23-25", want: PageRange{23, 24, 25}},
		{input: " 3 - 3 ", want: PageRange{3}},
		{input: "7", want: PageRange{7}},
		{input: "", wantErr: true},
		{input: "a-3", wantErr: true},
		{input: "3-b", wantErr: true},
		{input: "5-3", wantErr: true},
		{input: "0-2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePageRange(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParsePageRange(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePageRange(%q) error = %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParsePageRange(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestPageRange_StringAndValidate(t *testing.T) {
	r := NewPageRange(3, 5)
	if r.String() != "3-5" {
		t.Errorf("String() = %q, want 3-5", r.String())
	}
	if NewPageRange(4, 4).String() != "4" {
		t.Errorf("single page String() = %q", NewPageRange(4, 4).String())
	}
	if len(NewPageRange(5, 3)) != 0 {
		t.Error("inverted range should be empty")
	}
	if err := r.Validate(5); err != nil {
		t.Errorf("Validate(5) = %v", err)
	}
	if err := r.Validate(4); err == nil {
		t.Error("Validate(4) should fail for page 5")
	}
}

func TestLocate_ReferencesThenAppendix(t *testing.T) {
	doc := &fakePages{plain: []string{
		"Title page",
		"Introduction\nbody text",
		"References\nDoe, J. (2019). Widgets.",
		"Roe, R. (2018). Gadgets.",
		"Zed, Z. (2017). Things.",
		"Appendix A\nextra material",
		"Appendix B",
	}}

	got, err := NewLocator().Locate(doc)
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if want := (PageRange{3, 4, 5}); !reflect.DeepEqual(got, want) {
		t.Errorf("Locate() = %v, want %v", got, want)
	}
}

func TestLocate_NoAppendixRunsToLastPage(t *testing.T) {
	doc := &fakePages{plain: []string{
		"Intro",
		"\n\n   REFERENCES   \nDoe",
		"more refs",
	}}

	got, err := NewLocator().Locate(doc)
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if want := (PageRange{2, 3}); !reflect.DeepEqual(got, want) {
		t.Errorf("Locate() = %v, want %v", got, want)
	}
}

func TestLocate_AppendixImmediatelyAfter(t *testing.T) {
	doc := &fakePages{plain: []string{"References", "Appendix"}}

	got, err := NewLocator().Locate(doc)
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if want := (PageRange{1}); !reflect.DeepEqual(got, want) {
		t.Errorf("Locate() = %v, want %v", got, want)
	}
}

func TestLocate_NotFound(t *testing.T) {
	doc := &fakePages{plain: []string{"Intro", "Body mentions references later", "Conclusion"}}

	_, err := NewLocator().Locate(doc)
	if !errors.Is(err, ErrReferencesNotFound) {
		t.Errorf("Locate() error = %v, want ErrReferencesNotFound", err)
	}
}

func TestLocate_UnreadablePageIsSkipped(t *testing.T) {
	doc := &fakePages{
		plain: []string{"Intro", "References", "refs"},
		errs:  map[int]error{1: errors.New("bad font")},
	}

	got, err := NewLocator().Locate(doc)
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if want := (PageRange{2, 3}); !reflect.DeepEqual(got, want) {
		t.Errorf("Locate() = %v, want %v", got, want)
	}
}

func TestLocate_CustomHeadings(t *testing.T) {
	doc := &fakePages{plain: []string{"Intro", "Bibliography", "refs", "Index"}}

	got, err := NewLocator(
		WithStartHeadings("Bibliography", "Works Cited"),
		WithEndHeadings("index"),
	).Locate(doc)
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if want := (PageRange{2, 3}); !reflect.DeepEqual(got, want) {
		t.Errorf("Locate() = %v, want %v", got, want)
	}
}

func TestSegment_ContinuationAcrossPages(t *testing.T) {
	doc := &fakePages{
		plain: []string{"", ""},
		layout: []string{
			"Running head\n\n" +
				"Doe, J. (2019). Widgets and gadgets in the modern\n" +
				"       world. Journal of Things.\n" +
				"Roe, R. (2018). Gadgets. Press.",
			"Running head\n\n" +
				"Zed, Z. (2017). Things.",
		},
	}

	got := NewSegmenter().Segment(doc, PageRange{1, 2})
	want := []string{
		"Doe, J. (2019). Widgets and gadgets in the modern world. Journal of Things.",
		"Roe, R. (2018). Gadgets. Press.",
		"Zed, Z. (2017). Things.",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Segment() =\n%q\nwant\n%q", got, want)
	}
}

func TestSegmentText(t *testing.T) {
	tests := []struct {
		name   string
		indent int
		text   string
		want   []string
	}{
		{
			name: "heading block ignored",
			text: "References\n\nA (2001). One.\nB (2002). Two.",
			want: []string{"A (2001). One.", "B (2002). Two."},
		},
		{
			name: "three-space indent starts a new entry with default width",
			text: "A (2001). One\n   continued.",
			want: []string{"A (2001). One"},
		},
		{
			name:   "three-space indent is a continuation when width is 3",
			indent: 3,
			text:   "A (2001). One\n   continued.",
			want:   []string{"A (2001). One continued."},
		},
		{
			name: "leading continuation from previous page dropped",
			text: "      tail of previous entry.\nB (2002). Two.",
			want: []string{"B (2002). Two."},
		},
		{
			name: "indented page number footer passed over",
			text: "A (2001). One.\nB (2002). Two.\n\n                                  12",
			want: []string{"A (2001). One.", "B (2002). Two."},
		},
		{
			name: "internal whitespace collapsed",
			text: "A   (2001).\tOne    two.",
			want: []string{"A (2001). One two."},
		},
		{
			name: "windows line endings",
			text: "A (2001). One.\r\nB (2002). Two.\r\n",
			want: []string{"A (2001). One.", "B (2002). Two."},
		},
		{
			name: "empty page",
			text: "  \n\n ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSegmenter(WithContinuationIndent(tt.indent))
			got := s.SegmentText(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SegmentText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSegment_SkipsUnreadablePage(t *testing.T) {
	doc := &fakePages{
		plain: []string{"A (2001). One.", "B (2002). Two."},
		errs:  map[int]error{1: errors.New("corrupt")},
	}

	got := NewSegmenter().Segment(doc, PageRange{1, 2})
	if want := []string{"B (2002). Two."}; !reflect.DeepEqual(got, want) {
		t.Errorf("Segment() = %q, want %q", got, want)
	}
}

func TestSegment_EmptyRange(t *testing.T) {
	doc := &fakePages{plain: []string{"x"}}
	if got := NewSegmenter().Segment(doc, PageRange{}); len(got) != 0 {
		t.Errorf("Segment(empty) = %q, want none", got)
	}
}
