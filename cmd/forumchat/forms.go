package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"

	"github.com/Brace1000/forum-client-go/forum/rest"
)

// formLayout stacks a form over an error panel.
func formLayout(form *tview.Form, errView *tview.TextView) tview.Primitive {
	return tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(form, 0, 3, true).
		AddItem(errView, 5, 0, false)
}

// renderFieldErrors writes a field error map into an error panel.
func renderFieldErrors(errView *tview.TextView, errs rest.FieldErrors) {
	errView.Clear()
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(errView, "[red]%s: %s[-]\n", f, tview.Escape(errs[f]))
	}
}

// applyError routes an error either to its form fields or to a generic line.
func applyError(errView *tview.TextView, err error) {
	var fieldErrs rest.FieldErrors
	if errors.As(err, &fieldErrs) {
		renderFieldErrors(errView, fieldErrs)
		return
	}
	errView.Clear()
	fmt.Fprintf(errView, "[red]%s[-]\n", tview.Escape(err.Error()))
}

// login page

type loginPage struct {
	app    *App
	layout tview.Primitive
	form   *tview.Form
	errs   *tview.TextView
}

func newLoginPage(a *App) *loginPage {
	p := &loginPage{app: a}
	p.errs = tview.NewTextView().SetDynamicColors(true)
	p.form = tview.NewForm().
		AddInputField("Username or email", "", 40, nil, nil).
		AddPasswordField("Password", "", 40, '*', nil).
		AddButton("Login", p.submit).
		AddButton("Back", func() { a.showPage(pageHome) })
	p.form.SetBorder(true)
	p.form.SetTitle(" Login ")
	p.layout = formLayout(p.form, p.errs)
	return p
}

func (p *loginPage) setError(field, message string) {
	renderFieldErrors(p.errs, rest.FieldErrors{field: message})
}

func (p *loginPage) submit() {
	p.errs.Clear()
	identifier := p.form.GetFormItem(0).(*tview.InputField).GetText()
	password := p.form.GetFormItem(1).(*tview.InputField).GetText()

	go func() {
		_, err := p.app.ctrl.Login(p.app.ctx, identifier, password)
		p.app.ui.QueueUpdateDraw(func() {
			if err != nil {
				applyError(p.errs, err)
				return
			}
			p.form.GetFormItem(0).(*tview.InputField).SetText("")
			p.form.GetFormItem(1).(*tview.InputField).SetText("")
			p.app.onLoggedIn()
		})
	}()
}

// register page

var genderOptions = []string{"", "female", "male", "other"}

type registerPage struct {
	app    *App
	layout tview.Primitive
	form   *tview.Form
	errs   *tview.TextView
}

func newRegisterPage(a *App) *registerPage {
	p := &registerPage{app: a}
	p.errs = tview.NewTextView().SetDynamicColors(true)
	p.form = tview.NewForm().
		AddInputField("Username", "", 40, nil, nil).
		AddInputField("Email", "", 40, nil, nil).
		AddPasswordField("Password", "", 40, '*', nil).
		AddPasswordField("Confirm password", "", 40, '*', nil).
		AddInputField("First name", "", 40, nil, nil).
		AddInputField("Last name", "", 40, nil, nil).
		AddInputField("Age", "", 6, acceptDigits, nil).
		AddDropDown("Gender", genderOptions, 0, nil).
		AddButton("Register", p.submit).
		AddButton("Back", func() { a.showPage(pageHome) })
	p.form.SetBorder(true)
	p.form.SetTitle(" Register ")
	p.layout = formLayout(p.form, p.errs)
	return p
}

func acceptDigits(text string, _ rune) bool {
	if text == "" {
		return true
	}
	_, err := strconv.Atoi(text)
	return err == nil
}

func (p *registerPage) submit() {
	p.errs.Clear()
	text := func(i int) string { return p.form.GetFormItem(i).(*tview.InputField).GetText() }
	_, gender := p.form.GetFormItem(7).(*tview.DropDown).GetCurrentOption()

	form := rest.RegisterForm{
		Username:        text(0),
		Email:           text(1),
		Password:        text(2),
		ConfirmPassword: text(3),
		FirstName:       text(4),
		LastName:        text(5),
		Age:             text(6),
		Gender:          gender,
	}

	go func() {
		resp, err := p.app.ctrl.Register(p.app.ctx, form)
		p.app.ui.QueueUpdateDraw(func() {
			if err != nil {
				applyError(p.errs, err)
				return
			}
			message := "Registration successful!"
			if resp.Message != "" {
				message = resp.Message
			}
			p.app.login.setError("identifier", message)
			p.app.showPage(pageLogin)
		})
	}()
}

// create-post page

type createPostPage struct {
	app        *App
	layout     tview.Primitive
	form       *tview.Form
	errs       *tview.TextView
	categories []rest.Category
}

func newCreatePostPage(a *App) *createPostPage {
	p := &createPostPage{app: a}
	p.errs = tview.NewTextView().SetDynamicColors(true)
	p.form = tview.NewForm()
	p.form.SetBorder(true)
	p.form.SetTitle(" New post ")
	p.buildForm()
	p.layout = formLayout(p.form, p.errs)
	return p
}

func (p *createPostPage) buildForm() {
	p.form.Clear(true)
	p.form.
		AddInputField("Title", "", 60, nil, nil).
		AddTextArea("Content", "", 60, 6, 0, nil)
	for _, cat := range p.categories {
		label := cat.Name
		if cat.Description != "" {
			label += " - " + cat.Description
		}
		p.form.AddCheckbox(label, false, nil)
	}
	p.form.
		AddButton("Post", p.submit).
		AddButton("Back", func() { p.app.showPage(pageHome) })
}

// reloadCategories refreshes the category checkboxes from the server. On
// failure the page keeps working and offers a retry.
func (p *createPostPage) reloadCategories() {
	go func() {
		cats, err := p.app.api.Categories(p.app.ctx)
		p.app.ui.QueueUpdateDraw(func() {
			if err != nil {
				p.errs.Clear()
				fmt.Fprintf(p.errs, "[red]Failed to load categories.[-] Press F4 to retry.\n")
				log.Warn().Err(err).Msg("load categories failed")
				return
			}
			p.categories = cats
			p.buildForm()
		})
	}()
}

func (p *createPostPage) submit() {
	p.errs.Clear()
	title := p.form.GetFormItem(0).(*tview.InputField).GetText()
	content := p.form.GetFormItem(1).(*tview.TextArea).GetText()

	var categoryIDs []string
	for i, cat := range p.categories {
		if p.form.GetFormItem(2 + i).(*tview.Checkbox).IsChecked() {
			categoryIDs = append(categoryIDs, strconv.Itoa(cat.ID))
		}
	}

	errs := rest.FieldErrors{}
	if title == "" {
		errs["title"] = "Title and content are required"
	}
	if content == "" {
		errs["content"] = "Title and content are required"
	}
	if len(categoryIDs) == 0 {
		errs["category"] = "Please select at least one category"
	}
	if len(errs) > 0 {
		renderFieldErrors(p.errs, errs)
		return
	}

	form := rest.CreatePostForm{Title: title, Content: content, CategoryIDs: categoryIDs}
	go func() {
		_, err := p.app.api.CreatePost(p.app.ctx, form)
		p.app.ui.QueueUpdateDraw(func() {
			if err != nil {
				applyError(p.errs, err)
				return
			}
			p.buildForm() // reset fields
			p.app.showPage(pageHome)
		})
	}()
}
