package storefront

import (
	_ "embed"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"plantshop/internal"
	"plantshop/internal/cart"
	"plantshop/internal/util"
)

//go:embed templates/index.html
var shell string

const (
	cardImagePlaceholder = "Image Not Found"
	detailImageFallback  = "https://picsum.photos/seed/details/600/400"
)

const (
	categoryMarkup = `<li><a class="btn btn-sm btn-ghost justify-start w-full text-left category-btn"></a></li>`

	cardMarkup = `<div class="card bg-base-100 shadow hover:shadow-lg transition">
<figure class="bg-base-200 aspect-[4/3] overflow-hidden"><img class="h-full w-full object-cover"></figure>
<div class="card-body">
<h3 class="font-semibold text-lg hover:underline"><a class="card-name"></a></h3>
<p class="text-sm text-base-content/70 line-clamp-2 card-description"></p>
<div class="flex items-center gap-2 mt-1"><span class="badge badge-outline card-category"></span><span class="ml-auto font-semibold">৳<span class="card-price"></span></span></div>
<form method="post" action="/cart/add" class="card-actions mt-3"><input type="hidden" name="id"><button type="submit" class="btn btn-success btn-sm w-full">Add to Cart</button></form>
</div>
</div>`

	cartLineMarkup = `<li class="flex items-center gap-2 cart-line">
<div class="flex-1"><div class="font-medium cart-name"></div><div class="text-xs opacity-70 cart-qty"></div></div>
<form method="post" action="/cart/remove"><input type="hidden" name="id"><button type="submit" class="btn btn-xs btn-ghost">✕</button></form>
</li>`

	detailMarkup = `<div class="flex flex-col sm:flex-row gap-5">
<img class="w-full sm:w-64 h-48 object-cover rounded detail-image">
<div>
<h3 class="text-2xl font-semibold detail-name"></h3>
<p class="mt-1 text-sm opacity-70 detail-description"></p>
<div class="mt-2 flex items-center gap-2"><span class="badge badge-outline detail-category"></span><span class="ml-auto font-bold detail-price"></span></div>
<form method="post" action="/cart/add"><input type="hidden" name="id"><button type="submit" class="btn btn-success btn-sm mt-3" id="modalAdd">Add to Cart</button></form>
</div>
</div>`
)

// Page is the storefront document. Each Render method replaces the content
// of one section; text is always set through goquery so it is escaped.
type Page struct {
	doc *goquery.Document
}

func NewPage() (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(shell))
	if err != nil {
		return nil, fmt.Errorf("parse page shell: %w", err)
	}
	return &Page{doc: doc}, nil
}

func fragment(markup string) *goquery.Selection {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		panic(fmt.Sprintf("storefront: bad fragment markup: %v", err))
	}
	return doc.Find("body").Children()
}

func (p *Page) ShowSpinner(on bool) {
	spinner := p.doc.Find("#spinner")
	if on {
		spinner.RemoveClass("hidden")
	} else {
		spinner.AddClass("hidden")
	}
}

// RenderCategories lists categories in the given order, all unselected.
func (p *Page) RenderCategories(categories []internal.Category) {
	list := p.doc.Find("#categoryList")
	list.Empty()
	for _, cat := range categories {
		li := fragment(categoryMarkup)
		li.Find("a").
			SetAttr("data-id", cat.ID).
			SetAttr("href", categoryHref(cat.ID)).
			SetText(cat.Name)
		list.AppendSelection(li)
	}
}

func (p *Page) RenderCategoriesFailed() {
	list := p.doc.Find("#categoryList")
	list.Empty()
	list.AppendHtml(`<li class="text-error">Failed to load categories.</li>`)
}

// SetActiveCategory highlights the button for id and resets the rest.
func (p *Page) SetActiveCategory(id string) {
	if internal.IsAllCategory(id) {
		id = internal.AllCategoryID
	}
	p.doc.Find("#categoryList a[data-id]").Each(func(_ int, btn *goquery.Selection) {
		if btn.AttrOr("data-id", "") == id {
			btn.RemoveClass("btn-ghost").AddClass("btn-success")
		} else {
			btn.RemoveClass("btn-success").AddClass("btn-ghost")
		}
	})
}

func (p *Page) RenderGrid(items []internal.Item) {
	grid := p.doc.Find("#grid")
	grid.Empty()
	if len(items) == 0 {
		grid.AppendHtml(`<div class="col-span-full text-center py-10">No trees found.</div>`)
		return
	}

	for _, item := range items {
		card := fragment(cardMarkup)
		card.SetAttr("data-id", item.ID)

		image := item.Image
		if image == "" {
			image = cardImagePlaceholder
		}
		card.Find("img").SetAttr("src", image).SetAttr("alt", item.Name)
		card.Find(".card-name").SetAttr("href", "/plant/"+url.PathEscape(item.ID)).SetText(item.Name)

		description := item.Description
		if description == "" {
			description = "No description available."
		}
		card.Find(".card-description").SetText(description)
		card.Find(".card-category").SetText(item.Category)
		card.Find(".card-price").SetText(util.FormatPrice(item.Price))
		card.Find("input[name=id]").SetAttr("value", item.ID)

		grid.AppendSelection(card)
	}
}

func (p *Page) RenderGridFailed() {
	grid := p.doc.Find("#grid")
	grid.Empty()
	grid.AppendHtml(`<p class="text-error">Failed to load plants.</p>`)
}

func (p *Page) RenderCart(view cart.View) {
	list := p.doc.Find("#cartList")
	list.Empty()
	total := p.doc.Find("#cartTotal")
	if len(view.Lines) == 0 {
		list.AppendHtml(`<li class="text-sm opacity-70">Cart is empty.</li>`)
		total.SetText("0")
		return
	}

	for _, line := range view.Lines {
		li := fragment(cartLineMarkup)
		li.SetAttr("data-id", line.ID)
		li.Find(".cart-name").SetText(line.Name)
		li.Find(".cart-qty").SetText(fmt.Sprintf("৳%s × %d", util.FormatPrice(line.Price), line.Qty))
		li.Find("input[name=id]").SetAttr("value", line.ID)
		list.AppendSelection(li)
	}
	total.SetText(util.FormatPrice(view.Total))
}

// RenderDetail fills the modal with item and opens it.
func (p *Page) RenderDetail(item internal.Item) {
	content := fragment(detailMarkup)

	image := item.Image
	if image == "" {
		image = detailImageFallback
	}
	content.Find(".detail-image").SetAttr("src", image).SetAttr("alt", item.Name)
	content.Find(".detail-name").SetText(item.Name)

	description := item.Description
	if description == "" {
		description = "No description found."
	}
	content.Find(".detail-description").SetText(description)
	content.Find(".detail-category").SetText(item.Category)
	content.Find(".detail-price").SetText("৳" + util.FormatPrice(item.Price))
	content.Find("input[name=id]").SetAttr("value", item.ID)

	modal := p.doc.Find("#modalContent")
	modal.Empty()
	modal.AppendSelection(content)
	p.doc.Find("#detailModal").SetAttr("open", "")
}

func (p *Page) HTML() (string, error) {
	return goquery.OuterHtml(p.doc.Selection)
}

func categoryHref(id string) string {
	if internal.IsAllCategory(id) {
		return "/"
	}
	return "/category/" + url.PathEscape(id)
}
