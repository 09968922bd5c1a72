package presenter

import (
	"fmt"
	"slices"
	"strings"

	"focusgallery/models"
)

type Button struct {
	Text string
	Data string
}

type Photo struct {
	URL     string
	Caption string
}

// Reply is one outgoing chat message. Media replies are sent as an album
// (or a single photo); Edit replaces the message the triggering button
// belongs to.
type Reply struct {
	Text     string
	Keyboard [][]Button
	Media    []Photo
	Markdown bool
	Edit     bool
}

func Text(format string, args ...any) Reply {
	return Reply{Text: fmt.Sprintf(format, args...)}
}

var (
	backCategoriesButton = Button{Text: "🏠 Back to Categories", Data: TokenBackCategories}
	backYearsButton      = Button{Text: "🔙 Back to Years", Data: TokenBackYears}
	browseCancelButton   = Button{Text: "❌ Cancel", Data: TokenBrowseCancel}
)

func BrowseCategoryMenu(categories []models.Category) Reply {
	rows := categoryRows(categories, PrefixCategory)
	rows = append(rows, []Button{browseCancelButton})
	return Reply{Text: "📁 Select a category:", Keyboard: rows}
}

func UploadCategoryMenu(categories []models.Category, title string) Reply {
	return Reply{Text: title, Keyboard: categoryRows(categories, PrefixUploadCategory)}
}

func categoryRows(categories []models.Category, prefix string) [][]Button {
	rows := make([][]Button, 0, len(categories)+1)
	for _, c := range categories {
		rows = append(rows, []Button{{Text: c.Name, Data: prefix + c.ID}})
	}
	return rows
}

// YearMenu lists years newest first.
func YearMenu(categoryName string, years []int) Reply {
	sorted := slices.Clone(years)
	slices.SortFunc(sorted, func(a, b int) int { return b - a })

	rows := make([][]Button, 0, len(sorted)+1)
	for _, y := range sorted {
		rows = append(rows, []Button{{Text: fmt.Sprint(y), Data: fmt.Sprintf("%s%d", PrefixYear, y)}})
	}
	rows = append(rows, []Button{backCategoriesButton})
	return Reply{Text: fmt.Sprintf("📅 Select a year for category: %s", categoryName), Keyboard: rows}
}

func NoYears() Reply {
	return Reply{
		Text:     "No images available for this category.",
		Keyboard: [][]Button{{backCategoriesButton}},
	}
}

// Navigation is the keyboard under a page of images. Previous and Next
// are left out at the first and last page.
func Navigation(page, totalPages int) [][]Button {
	var paging []Button
	if page > 1 {
		paging = append(paging, Button{Text: "⬅️ Previous", Data: TokenPrevPage})
	}
	if page < totalPages {
		paging = append(paging, Button{Text: "Next ➡️", Data: TokenNextPage})
	}

	var rows [][]Button
	if len(paging) > 0 {
		rows = append(rows, paging)
	}
	return append(rows, []Button{backYearsButton, backCategoriesButton})
}

// ImagePage renders a page as an album followed by a status message.
func ImagePage(categoryName string, year int, page *models.ImagePage) []Reply {
	totalPages := page.TotalPages()
	if len(page.Items) == 0 {
		return []Reply{{
			Text:     "No images found for this selection.",
			Keyboard: Navigation(page.Page, totalPages),
		}}
	}

	photos := make([]Photo, 0, len(page.Items))
	for i, img := range page.Items {
		photo := Photo{URL: img.URL}
		if i == 0 {
			photo.Caption = Caption(categoryName, year, img)
		}
		photos = append(photos, photo)
	}

	return []Reply{
		{Media: photos},
		{
			Text:     fmt.Sprintf("📷 Page %d/%d | Total images: %d", page.Page, totalPages, page.TotalCount),
			Keyboard: Navigation(page.Page, totalPages),
		},
	}
}

func Caption(categoryName string, year int, img models.Image) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 %d | %s\n", year, categoryName)
	if len(img.Tags) > 0 {
		fmt.Fprintf(&b, "🏷️ Tags: %s\n", strings.Join(img.Tags, ", "))
	}
	fmt.Fprintf(&b, "🔼 Uploaded at: %s", img.UploadedAt.UTC().Format("2006-01-02 15:04 UTC"))
	return b.String()
}

// UploadResult reports the outcome of a single image message.
func UploadResult(uploaded, failed int) Reply {
	return Text("📤 Upload results:\n- ✅ Success: %d\n- ❌ Failed: %d", uploaded, failed)
}

func NextActionMenu() Reply {
	return Reply{
		Text: "What would you like to do next?",
		Keyboard: [][]Button{
			{{Text: "📤 Upload more for same category/year", Data: TokenMoreSame}},
			{{Text: "🔄 Change category/year", Data: TokenChangeSettings}},
			{{Text: "🚫 Stop uploading", Data: TokenStopUpload}},
		},
	}
}

func BatchSummary(uploaded, failed int) Reply {
	return Text("✅ Upload session ended. Thank you!\n\n📊 This batch: %d uploaded, %d failed", uploaded, failed)
}

// Failure keeps the user's way out of a flow when a backend call fails.
func Failure(text string, browsing bool) Reply {
	r := Reply{Text: text}
	if browsing {
		r.Keyboard = [][]Button{{backCategoriesButton, browseCancelButton}}
	}
	return r
}

func Welcome(firstName string, isAdmin bool) Reply {
	status := "👤 You are a regular user"
	if isAdmin {
		status = "🛡️ You are an ADMIN"
	}
	return Text("Hi %s! %s\n\n"+
		"Use /upload to add new images (admins only)\n"+
		"Use /browse to view images\n"+
		"Use /categories to see available categories\n"+
		"Use /id to see your Telegram ID\n"+
		"Use /cancel to stop the current action", firstName, status)
}

func UserID(id int64) Reply {
	return Reply{
		Text:     fmt.Sprintf("Your Telegram ID: `%d`\n\nProvide this to the bot admin to get access", id),
		Markdown: true,
	}
}

func CategoryList(categories []models.Category) Reply {
	var b strings.Builder
	b.WriteString("📁 Available categories:\n\n")
	for _, c := range categories {
		fmt.Fprintf(&b, "- %s (`%s`)\n", EscapeMarkdown(c.Name), c.ID)
	}
	return Reply{Text: b.String(), Markdown: true}
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// EscapeMarkdown escapes the characters legacy Telegram Markdown treats as markup.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
