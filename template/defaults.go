package template

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/rubiojr/tplc/locale"
	"github.com/rubiojr/tplc/modules"
	"github.com/rubiojr/tplc/value"
)

// MenuItemType is the record type looked up by menuItem(id).
const MenuItemType = "MenuItem"

// registerDefaults installs the pseudo-functions every engine has.
func (e *Engine) registerDefaults() {
	defaults := []modules.Binding{
		{Name: "menuItem", MinArgs: 1, MaxArgs: 1, Fn: e.menuItem,
			Doc: "menuItem(id) looks up a menu item record"},
		{Name: "i", MinArgs: 1, MaxArgs: 1, Fn: e.instance,
			Doc: "i(name) returns a registered service"},
		{Name: "css", MinArgs: 1, MaxArgs: 3, Fn: e.assetFunc(e.AddCSSFile),
			Doc: "css(file[, group, key]) registers a stylesheet"},
		{Name: "js", MinArgs: 1, MaxArgs: 3, Fn: e.assetFunc(e.AddJSFile),
			Doc: "js(file[, group, key]) registers a script"},
		{Name: "include", MinArgs: 1, MaxArgs: 3, Fn: e.includeFunc,
			Doc: "include(file[, vars, cacheKey]) renders another template"},
		{Name: "shorten", MinArgs: 1, MaxArgs: 3, Fn: shortenFunc,
			Doc: "shorten(text[, length, append]) strips tags and truncates at a word"},
		{Name: "age", MinArgs: 1, MaxArgs: 1, Fn: e.age,
			Doc: "age(date) returns full years since date"},
		{Name: "isLast", MinArgs: 2, MaxArgs: 2, Fn: isLast,
			Doc: "isLast(collection, key) reports whether key is the final key"},
		{Name: "formatDate", MinArgs: 1, MaxArgs: 2, Fn: e.dateFunc(locale.FormatDate),
			Doc: "formatDate(date[, locale]) formats a localized date"},
		{Name: "formatDateTime", MinArgs: 1, MaxArgs: 2, Fn: e.dateFunc(locale.FormatDateTime),
			Doc: "formatDateTime(date[, locale]) formats a localized date and time"},
		{Name: "_", MinArgs: 1, MaxArgs: 2, Fn: e.translate,
			Doc: "_(key[, locale]) translates key"},
		{Name: "et", MinArgs: 2, MaxArgs: 3, Fn: e.entityTranslate,
			Doc: "et(entity, field[, locale]) returns a translated entity field"},
	}
	for _, b := range defaults {
		if err := e.bindings.Register(b); err != nil {
			panic(err)
		}
	}
}

func stringArg(args []any, i int, def string) (string, error) {
	if i >= len(args) || args[i] == nil {
		return def, nil
	}
	return value.ToString(args[i])
}

func intArg(args []any, i int, def int) (int, error) {
	if i >= len(args) || args[i] == nil {
		return def, nil
	}
	n, ok := value.ToNumber(args[i])
	if !ok {
		return 0, fmt.Errorf("argument %d must be a number, %s given", i+1, value.TypeName(args[i]))
	}
	return n.Int(), nil
}

func (e *Engine) menuItem(args []any) (any, error) {
	if e.opts.Records == nil {
		return nil, errors.New("menuItem: no record finder configured")
	}
	rec, err := e.opts.Records.FindOneBy(MenuItemType, map[string]any{"id": args[0]})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return rec, nil
}

func (e *Engine) instance(args []any) (any, error) {
	if e.opts.Services == nil {
		return nil, errors.New("i: no services configured")
	}
	name, err := stringArg(args, 0, "")
	if err != nil {
		return nil, err
	}
	return e.opts.Services.Get(name)
}

func (e *Engine) assetFunc(add func(file, group, key string)) value.Func {
	return func(args []any) (any, error) {
		file, err := stringArg(args, 0, "")
		if err != nil {
			return nil, err
		}
		group, err := stringArg(args, 1, DefaultGroup)
		if err != nil {
			return nil, err
		}
		key, err := stringArg(args, 2, "")
		if err != nil {
			return nil, err
		}
		add(file, group, key)
		return nil, nil
	}
}

func (e *Engine) includeFunc(args []any) (any, error) {
	file, err := stringArg(args, 0, "")
	if err != nil {
		return nil, err
	}
	var vars, key any
	if len(args) > 1 {
		vars = args[1]
	}
	if len(args) > 2 {
		key = args[2]
	}
	return e.Include(file, vars, key)
}

var spaceRun = regexp.MustCompile(`\s{2,}`)

func shortenFunc(args []any) (any, error) {
	text, err := stringArg(args, 0, "")
	if err != nil {
		return nil, err
	}
	length, err := intArg(args, 1, 200)
	if err != nil {
		return nil, err
	}
	suffix, err := stringArg(args, 2, "...")
	if err != nil {
		return nil, err
	}
	return Shorten(text, length, suffix), nil
}

// Shorten strips markup from text, collapses whitespace runs and cuts it
// at the first space at or after length. suffix is appended when text
// was cut.
func Shorten(text string, length int, suffix string) string {
	text = strings.TrimSpace(spaceRun.ReplaceAllString(stripTags(text), " "))
	if length < 0 {
		length = 0
	}
	for length < len(text) && text[length] != ' ' {
		length++
	}
	if length >= len(text) {
		return text
	}
	return text[:length] + suffix
}

// stripTags drops every tag and comment from s, keeping text verbatim.
func stripTags(s string) string {
	var sb strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return sb.String()
		case html.TextToken:
			sb.Write(z.Raw())
		}
	}
}

func (e *Engine) age(args []any) (any, error) {
	birth, ok := locale.ParseTime(args[0])
	if !ok {
		return "", nil
	}
	return locale.Age(birth, e.opts.Now()), nil
}

func isLast(args []any) (any, error) {
	last, ok := value.LastKey(args[0])
	if !ok {
		return false, nil
	}
	return value.Identical(last, args[1]), nil
}

func (e *Engine) localeArg(args []any, i int) (string, error) {
	return stringArg(args, i, e.opts.Locale)
}

func (e *Engine) dateFunc(format func(v any, locale string) string) value.Func {
	return func(args []any) (any, error) {
		loc, err := e.localeArg(args, 1)
		if err != nil {
			return nil, err
		}
		return format(args[0], loc), nil
	}
}

func (e *Engine) translate(args []any) (any, error) {
	key, err := stringArg(args, 0, "")
	if err != nil {
		return nil, err
	}
	loc, err := e.localeArg(args, 1)
	if err != nil {
		return nil, err
	}
	if e.opts.Translator == nil {
		return key, nil
	}
	return e.opts.Translator.Translate(key, loc), nil
}

// entityTranslate reads field from entity.translations[locale], falling
// back to the entity's own field.
func (e *Engine) entityTranslate(args []any) (any, error) {
	entity := args[0]
	field, err := stringArg(args, 1, "")
	if err != nil {
		return nil, err
	}
	loc, err := e.localeArg(args, 2)
	if err != nil {
		return nil, err
	}
	if translations, ok := value.Member(entity, "translations"); ok {
		if tr, ok := value.Index(translations, loc); ok {
			if v, ok := value.Member(tr, field); ok && v != nil {
				return v, nil
			}
		}
	}
	v, _ := value.Member(entity, field)
	return v, nil
}
