package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jeepedia/jeepedia/internal/apperror"
	"github.com/jeepedia/jeepedia/internal/client/api"
	"github.com/jeepedia/jeepedia/internal/client/predictor"
	"github.com/jeepedia/jeepedia/internal/client/prompt"
	"github.com/jeepedia/jeepedia/internal/client/session"
	"github.com/jeepedia/jeepedia/internal/client/view"
	"github.com/jeepedia/jeepedia/internal/models"
	"github.com/jeepedia/jeepedia/internal/service"
)

const helpText = `Available commands:
  login, register, logout, whoami, forgot, verify-email [link|token]
  posts, post <slug>, like, comment, reply <commentID>, newpost
  myposts, edit <id>, delete <id>
  feedbacks, feedback, contact
  predict, filter, select <name>, compare, close
  profile, password, email, subscribe, dashboard
  help, exit`

// app is the state of one shell session. Views opened by a command stay
// mounted until the next command of the same kind replaces them.
type app struct {
	ctx      context.Context
	in       *prompt.Prompter
	log      *zap.Logger
	session  *session.Provider
	client   *api.Client
	auth     *service.AuthService
	checkout *service.CheckoutService

	detail  *view.PostDetail
	myPosts *view.MyPosts
	form    *predictor.Form
}

// authOnly names the commands refused while logged out.
var authOnly = map[string]bool{
	"like": true, "comment": true, "reply": true, "newpost": true,
	"myposts": true, "edit": true, "delete": true,
	"feedbacks": true, "feedback": true,
	"profile": true, "password": true, "email": true,
	"subscribe": true, "dashboard": true, "logout": true,
}

func (a *app) run() {
	defer a.closeViews()
	out := a.in.Out()
	fmt.Fprintln(out, "JEEPedia. Type 'help' for a list of commands.")
	for {
		if a.ctx.Err() != nil {
			return
		}
		line, ok := a.in.Line("jeepedia> ")
		if !ok {
			return
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		cmd, rest := args[0], strings.TrimSpace(strings.TrimPrefix(line, args[0]))
		if authOnly[cmd] && !a.session.Authenticated() {
			fmt.Fprintln(out, "Please log in first.")
			continue
		}
		if cmd == "exit" || cmd == "quit" {
			fmt.Fprintln(out, "Bye")
			return
		}
		a.dispatch(cmd, rest)
	}
}

func (a *app) dispatch(cmd, arg string) {
	out := a.in.Out()
	switch cmd {
	case "help":
		fmt.Fprintln(out, helpText)
	case "login":
		a.login()
	case "register":
		a.register()
	case "logout":
		a.report(a.auth.Logout(a.ctx))
		a.closeViews()
	case "whoami":
		a.whoami()
	case "forgot":
		a.forgot()
	case "verify-email":
		if arg != "" {
			a.verifyEmailLink(arg)
			break
		}
		a.verifyEmail()
	case "posts":
		a.posts()
	case "post":
		a.openPost(arg)
	case "like":
		a.like()
	case "comment":
		a.comment()
	case "reply":
		a.reply(arg)
	case "newpost":
		a.newPost()
	case "myposts":
		a.listMyPosts()
	case "edit":
		a.editPost(arg)
	case "delete":
		a.deletePost(arg)
	case "feedbacks":
		a.feedbacks()
	case "feedback":
		a.addFeedback()
	case "contact":
		a.contact()
	case "predict":
		a.predict()
	case "filter":
		a.filter()
	case "select":
		a.selectCollege(arg)
	case "compare":
		a.compare()
	case "close":
		a.closeComparison()
	case "profile":
		a.profile()
	case "password":
		a.changePassword()
	case "email":
		a.changeEmail()
	case "subscribe":
		a.subscribe()
	case "dashboard":
		a.dashboard()
	default:
		fmt.Fprintln(out, "Unknown command. Type 'help' for a list of commands.")
	}
}

// report prints err in user terms and returns whether it was nil.
func (a *app) report(err error) bool {
	if err == nil {
		return true
	}
	out := a.in.Out()
	if fields := apperror.FieldErrors(err); len(fields) > 0 {
		names := make([]string, 0, len(fields))
		for k := range fields {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			fmt.Fprintf(out, "  %s: %s\n", k, fields[k])
		}
		return false
	}
	fmt.Fprintln(out, "Error:", apperror.Message(err))
	if errors.Is(err, apperror.ErrUnauthenticated) {
		a.closeViews()
	}
	return false
}

func (a *app) closeViews() {
	if a.detail != nil {
		a.detail.Close()
		a.detail = nil
	}
	if a.myPosts != nil {
		a.myPosts.Close()
		a.myPosts = nil
	}
}

func (a *app) login() {
	email := a.in.Text("Email: ")
	password := a.in.Text("Password: ")
	next, err := a.auth.Login(a.ctx, email, password)
	if !a.report(err) {
		return
	}
	fmt.Fprintf(a.in.Out(), "Welcome, %s.\n", a.session.Profile().DisplayName())
	if next == predictor.Path {
		a.predict()
	}
}

func (a *app) register() {
	r := models.Registration{
		FirstName:   a.in.Text("First name: "),
		LastName:    a.in.Text("Last name: "),
		Email:       a.in.Text("Email: "),
		PhoneNumber: a.in.Text("Phone number: "),
		Username:    a.in.Text("Username: "),
		Password:    a.in.Text("Password: "),
	}
	msg, err := a.auth.Register(a.ctx, r)
	if a.report(err) {
		fmt.Fprintln(a.in.Out(), msg)
	}
}

func (a *app) whoami() {
	out := a.in.Out()
	p := a.session.Profile()
	if p == nil {
		fmt.Fprintln(out, "Not logged in.")
		return
	}
	fmt.Fprintf(out, "%s (@%s) <%s>\n", p.DisplayName(), p.Username, p.Email)
	if exp, ok := a.session.ExpiresAt(); ok {
		fmt.Fprintf(out, "Session expires %s\n", exp.Local().Format("2006-01-02 15:04"))
	}
}

func (a *app) forgot() {
	out := a.in.Out()
	email := a.in.Text("Email: ")
	msg, err := a.auth.ForgotPassword(a.ctx, email)
	if !a.report(err) {
		return
	}
	fmt.Fprintln(out, msg)
	otp := a.in.Text("OTP: ")
	if _, err := a.auth.VerifyOTP(a.ctx, email, otp); !a.report(err) {
		return
	}
	next := a.in.Text("New password: ")
	confirm := a.in.Text("Confirm password: ")
	msg, err = a.auth.ResetPassword(a.ctx, email, otp, next, confirm)
	if a.report(err) {
		fmt.Fprintln(out, msg)
	}
}

func (a *app) verifyEmail() {
	out := a.in.Out()
	email := a.in.Text("Email: ")
	if email == "" {
		if p := a.session.Profile(); p != nil {
			email = p.Email
		}
	}
	msg, err := a.auth.SendVerificationOTP(a.ctx, email)
	if !a.report(err) {
		return
	}
	fmt.Fprintln(out, msg)
	msg, err = a.auth.VerifyEmailOTP(a.ctx, email, a.in.Text("OTP: "))
	if a.report(err) {
		fmt.Fprintln(out, msg)
	}
}

// verifyEmailLink completes verification from a mailed link or its token.
func (a *app) verifyEmailLink(link string) {
	msg, err := a.auth.VerifyEmailToken(a.ctx, link)
	if a.report(err) {
		fmt.Fprintln(a.in.Out(), msg)
	}
}

func (a *app) posts() {
	feed := view.NewPostFeed(a.client, a.session, a.log)
	defer feed.Close()
	if !a.report(feed.Mount(a.ctx)) {
		return
	}
	a.printPosts(feed.Posts())
}

func (a *app) printPosts(posts []models.Post) {
	out := a.in.Out()
	if len(posts) == 0 {
		fmt.Fprintln(out, "No posts yet.")
		return
	}
	for _, p := range posts {
		fmt.Fprintf(out, "[%d] %s  by @%s  %d likes  (%s)\n", p.ID, p.Title, p.User.Username, p.LikeCount, p.Slug)
	}
}

func (a *app) openPost(slug string) {
	if slug == "" {
		fmt.Fprintln(a.in.Out(), "Usage: post <slug>")
		return
	}
	if a.detail != nil {
		a.detail.Close()
	}
	a.detail = view.NewPostDetail(a.client, a.session, slug, a.log)
	if !a.report(a.detail.Mount(a.ctx)) {
		a.detail.Close()
		a.detail = nil
		return
	}
	a.printDetail()
}

func (a *app) printDetail() {
	out := a.in.Out()
	d := a.detail.Detail()
	fmt.Fprintf(out, "%s\nby @%s on %s\n\n%s\n", d.Post.Title, d.Post.User.Username, d.Post.CreatedAt.Local().Format("2006-01-02"), d.Post.Content)
	if d.Post.Image != "" {
		fmt.Fprintln(out, "Image:", a.client.MediaURL(d.Post.Image))
	}
	liked := ""
	if d.UserLiked {
		liked = " (you liked this)"
	}
	fmt.Fprintf(out, "\n%d likes%s, %d comments\n", d.LikeCount, liked, len(d.Comments))
	for _, c := range d.Comments {
		pending := ""
		if c.Pending {
			pending = " (sending)"
		}
		fmt.Fprintf(out, "  #%d @%s: %s%s\n", c.ID, c.User.Username, c.Content, pending)
		for _, r := range c.Replies {
			fmt.Fprintf(out, "      @%s: %s\n", r.User.Username, r.Content)
		}
	}
}

func (a *app) requireDetail() bool {
	if a.detail == nil {
		fmt.Fprintln(a.in.Out(), "Open a post first with 'post <slug>'.")
		return false
	}
	return true
}

func (a *app) like() {
	if !a.requireDetail() {
		return
	}
	if a.report(a.detail.ToggleLike(a.ctx)) {
		d := a.detail.Detail()
		fmt.Fprintf(a.in.Out(), "%d likes\n", d.LikeCount)
	}
}

func (a *app) comment() {
	if !a.requireDetail() {
		return
	}
	if a.report(a.detail.AddComment(a.ctx, a.in.Text("Comment: "))) {
		a.printDetail()
	}
}

func (a *app) reply(arg string) {
	if !a.requireDetail() {
		return
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		fmt.Fprintln(a.in.Out(), "Usage: reply <commentID>")
		return
	}
	if a.report(a.detail.AddReply(a.ctx, id, a.in.Text("Reply: "))) {
		a.printDetail()
	}
}

func (a *app) newPost() {
	feed := view.NewPostFeed(a.client, a.session, a.log)
	defer feed.Close()
	if !a.report(feed.Mount(a.ctx)) {
		return
	}
	p := models.NewPost{
		Title:   a.in.Text("Title: "),
		Content: a.in.Text("Content: "),
	}
	name, data, err := a.in.File("Image path (optional): ")
	if !a.report(err) {
		return
	}
	p.ImageName, p.Image = name, data
	if a.report(feed.Create(a.ctx, p)) {
		fmt.Fprintf(a.in.Out(), "Posted %q.\n", feed.Posts()[0].Slug)
	}
}

func (a *app) mountMyPosts() bool {
	if a.myPosts == nil {
		a.myPosts = view.NewMyPosts(a.client, a.session, a.log)
		if !a.report(a.myPosts.Mount(a.ctx)) {
			a.myPosts.Close()
			a.myPosts = nil
			return false
		}
		return true
	}
	return a.report(a.myPosts.Refresh(a.ctx))
}

func (a *app) listMyPosts() {
	if a.mountMyPosts() {
		a.printPosts(a.myPosts.Posts())
	}
}

func postID(out io.Writer, arg, usage string) (int64, bool) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		fmt.Fprintln(out, usage)
		return 0, false
	}
	return id, true
}

func (a *app) editPost(arg string) {
	id, ok := postID(a.in.Out(), arg, "Usage: edit <id>")
	if !ok || !a.mountMyPosts() {
		return
	}
	if !a.report(a.myPosts.BeginEdit(id)) {
		return
	}
	_, draft, _ := a.myPosts.Draft()
	fmt.Fprintf(a.in.Out(), "Editing %q. Leave a field empty to keep it.\n", draft.Title)
	if t := a.in.Text("Title: "); t != "" {
		draft.Title = t
	}
	if c := a.in.Text("Content: "); c != "" {
		draft.Content = c
	}
	if a.report(a.myPosts.SaveEdit(a.ctx, draft)) {
		fmt.Fprintln(a.in.Out(), "Post updated.")
		return
	}
	a.myPosts.CancelEdit()
}

func (a *app) deletePost(arg string) {
	id, ok := postID(a.in.Out(), arg, "Usage: delete <id>")
	if !ok || !a.mountMyPosts() {
		return
	}
	if !a.report(a.myPosts.RequestDelete(id)) {
		return
	}
	if !a.in.Confirm(fmt.Sprintf("Delete post %d?", id)) {
		a.myPosts.CancelDelete()
		fmt.Fprintln(a.in.Out(), "Cancelled.")
		return
	}
	if a.report(a.myPosts.ConfirmDelete(a.ctx)) {
		fmt.Fprintln(a.in.Out(), "Post deleted.")
	}
}

func (a *app) printFeedbacks(items []models.Feedback) {
	out := a.in.Out()
	if len(items) == 0 {
		fmt.Fprintln(out, "No feedback yet.")
		return
	}
	for _, f := range items {
		fmt.Fprintf(out, "%s  %d/5  %-12s %s\n", f.CreatedAt.Local().Format("2006-01-02"), f.Rating, f.Status(), f.Feedback)
	}
}

func (a *app) feedbacks() {
	fb := view.NewFeedbacks(a.client, a.session, a.log)
	defer fb.Close()
	if a.report(fb.Mount(a.ctx)) {
		a.printFeedbacks(fb.Items())
	}
}

func (a *app) addFeedback() {
	fb := view.NewFeedbacks(a.client, a.session, a.log)
	defer fb.Close()
	if !a.report(fb.Mount(a.ctx)) {
		return
	}
	text := a.in.Text("Feedback: ")
	rating, err := a.in.Int("Rating (1-5): ")
	if !a.report(err) {
		return
	}
	if a.report(fb.Submit(a.ctx, models.FeedbackInput{Feedback: text, Rating: rating})) {
		fmt.Fprintln(a.in.Out(), "Thanks for your feedback.")
	}
}

func (a *app) contact() {
	m := models.ContactMessage{
		Name:    a.in.Text("Name: "),
		Email:   a.in.Text("Email: "),
		Subject: a.in.Text("Subject: "),
		Message: a.in.Text("Message: "),
	}
	form := view.NewContactForm(a.client, a.log)
	defer form.Close()
	msg, err := form.Send(a.ctx, m)
	if a.report(err) {
		fmt.Fprintln(a.in.Out(), msg)
	}
}

func (a *app) predict() {
	out := a.in.Out()
	form, err := predictor.Open(a.ctx, a.session, a.client, a.log)
	if errors.Is(err, apperror.ErrUnauthenticated) {
		fmt.Fprintln(out, "Please log in to use the predictor. You will be brought back here.")
		return
	}
	if !a.report(err) {
		return
	}
	a.form = form

	for form.Step() == predictor.StepScores {
		form.SetScores(predictor.Scores{
			Rank:       a.in.Text("JEE Main rank (leave empty to use percentile): "),
			Percentile: a.in.Text("Percentile (optional if rank given): "),
		})
		if !a.report(form.Next()) && !a.in.Confirm("Try again?") {
			return
		}
	}

	d := form.Details()
	d.Name = a.in.Text("Name: ")
	d.Gender = a.in.Text("Gender: ")
	d.State = a.in.Text("Home state: ")
	if c := a.in.Text("Category [" + d.Category + "]: "); c != "" {
		d.Category = c
	}
	d.PwD = a.in.Confirm("Person with disability?")
	form.SetDetails(d)
	if !a.report(form.Next()) {
		return
	}

	err = form.Submit(a.ctx)
	if errors.Is(err, apperror.ErrSubscriptionRequired) {
		fmt.Fprintln(out, apperror.Message(err))
		if a.in.Confirm("Subscribe now?") && a.subscribe() {
			err = form.Submit(a.ctx)
		} else {
			return
		}
	}
	if !a.report(err) {
		return
	}
	a.printResults()
}

func (a *app) requireResults() bool {
	if a.form == nil || a.form.Step() != predictor.StepResults {
		fmt.Fprintln(a.in.Out(), "Run 'predict' first.")
		return false
	}
	return true
}

func (a *app) printResults() {
	out := a.in.Out()
	st := a.form.Stats()
	fmt.Fprintf(out, "Rank used: %s. Safety %d, Moderate %d, Ambitious %d\n",
		a.form.Scores().Rank, st.Safety, st.Moderate, st.Ambitious)
	selected := map[string]bool{}
	for _, c := range a.form.Selected() {
		selected[c.CollegeName] = true
	}
	for _, c := range a.form.Filtered() {
		mark := " "
		if selected[c.CollegeName] {
			mark = "*"
		}
		fmt.Fprintf(out, "%s %-18s %-5s %-24s %5.1f%% %-9s cutoff %d\n",
			mark, c.CollegeName, c.CollegeType, c.Branch, c.ProbabilityPercentage, c.SafetyLevel, c.CutoffRank2023)
	}
}

func (a *app) filter() {
	if !a.requireResults() {
		return
	}
	a.form.SetFilter(predictor.Filter{
		CollegeType: a.in.Text("College type (NIT, IIIT, ... or all): "),
		SafetyLevel: a.in.Text("Safety level (Safety, Moderate, Ambitious or all): "),
		Search:      a.in.Text("Search: "),
	})
	a.printResults()
}

func (a *app) selectCollege(name string) {
	if !a.requireResults() {
		return
	}
	selected, err := a.form.Toggle(name)
	if !a.report(err) {
		return
	}
	out := a.in.Out()
	switch {
	case selected:
		fmt.Fprintf(out, "Selected %s.\n", name)
	case len(a.form.Selected()) >= predictor.MaxSelected:
		fmt.Fprintf(out, "At most %d colleges can be compared.\n", predictor.MaxSelected)
	default:
		fmt.Fprintf(out, "Deselected %s.\n", name)
	}
}

func (a *app) compare() {
	if !a.requireResults() {
		return
	}
	cmp, err := a.form.Compare(a.ctx)
	if !a.report(err) {
		return
	}
	out := a.in.Out()
	fmt.Fprintf(out, "%s vs %s\n", cmp.College1Name, cmp.College2Name)
	for _, p := range cmp.Comparison {
		fmt.Fprintln(out, " -", p)
	}
	fmt.Fprintln(out, "Recommendation:", cmp.Recommendation)
}

func (a *app) closeComparison() {
	if a.form != nil {
		a.form.CloseComparison()
	}
}

func (a *app) profile() {
	out := a.in.Out()
	editor := view.NewProfileEditor(a.client, a.session, a.log)
	defer editor.Close()
	if !a.report(editor.Mount(a.ctx)) {
		return
	}
	p := editor.Profile()
	fmt.Fprintf(out, "%s (@%s)\nEmail: %s\nPhone: %s\n", p.DisplayName(), p.Username, p.Email, p.PhoneNumber)
	if p.ProfilePicture != "" {
		fmt.Fprintln(out, "Picture:", a.client.MediaURL(p.ProfilePicture))
	}
	if a.in.Confirm("Edit profile?") {
		draft, err := editor.BeginEdit()
		if !a.report(err) {
			return
		}
		fmt.Fprintln(out, "Leave a field empty to keep it.")
		keep := func(label string, v *string) {
			if s := a.in.Text(label); s != "" {
				*v = s
			}
		}
		keep("First name: ", &draft.FirstName)
		keep("Last name: ", &draft.LastName)
		keep("Username: ", &draft.Username)
		keep("Phone number: ", &draft.PhoneNumber)
		if a.report(editor.SaveEdit(a.ctx, draft)) {
			fmt.Fprintln(out, "Profile updated.")
		}
	}
	if a.in.Confirm("Change profile picture?") {
		name, data, err := a.in.File("Image path: ")
		if a.report(err) && a.report(editor.UpdatePicture(a.ctx, name, data)) {
			fmt.Fprintln(out, "Picture updated.")
		}
	}
}

func (a *app) changePassword() {
	msg, err := a.auth.ChangePassword(a.ctx,
		a.in.Text("Current password: "),
		a.in.Text("New password: "),
		a.in.Text("Confirm password: "),
	)
	if a.report(err) {
		fmt.Fprintln(a.in.Out(), msg)
	}
}

func (a *app) changeEmail() {
	msg, err := a.auth.ChangeEmail(a.ctx, a.in.Text("Current email: "), a.in.Text("New email: "))
	if a.report(err) {
		fmt.Fprintln(a.in.Out(), msg)
	}
}

// subscribe walks the checkout and reports whether the payment was verified.
// The terminal has no payment widget, so the confirmation is typed in.
func (a *app) subscribe() bool {
	out := a.in.Out()
	co := view.NewCheckout(a.checkout, a.session, a.log)
	defer co.Close()
	if !a.report(co.Mount(a.ctx)) {
		return false
	}
	order, err := co.CreateOrder(a.ctx, models.DefaultPlanAmount)
	if !a.report(err) {
		return false
	}
	fmt.Fprintf(out, "Order %s: %d.%02d %s (contact %s)\n",
		order.OrderID, order.Amount/100, order.Amount%100, order.Currency, co.Current().Contact)
	conf := models.PaymentConfirmation{
		OrderID:   order.OrderID,
		PaymentID: a.in.Text("Payment ID: "),
		Signature: a.in.Text("Signature: "),
	}
	if !a.report(co.Verify(a.ctx, conf)) {
		return false
	}
	fmt.Fprintln(out, "Subscription active.")
	return true
}

func (a *app) dashboard() {
	out := a.in.Out()
	dash := view.NewDashboard(a.client, a.client, a.client, a.session, a.log)
	defer dash.Close()
	a.report(dash.Mount(a.ctx))
	if p := dash.Profile.Profile(); p != nil {
		fmt.Fprintf(out, "== %s (@%s)\n", p.DisplayName(), p.Username)
	}
	fmt.Fprintln(out, "== My posts")
	a.printPosts(dash.MyPosts.Posts())
	fmt.Fprintln(out, "== My feedback")
	a.printFeedbacks(dash.Feedbacks.Items())
}
