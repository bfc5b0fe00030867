package bot

const (
	MsgStartPrompt = `
		Send a photo and use the commands below to fill in the listing.

		/name <text> sets the item name
		/category <text> sets the category
		/list submits the listing`
	MsgUnknownCommand      = "Unknown command. Send /start for help."
	MsgPhotoDownloadFailed = "Could not download the photo, try sending it again."
)

// MsgDraftFmt renders the listing form. Arguments are name, category and
// image, each already escaped for Markdown.
const MsgDraftFmt = `
	*Name:* %s
	*Category:* %s
	*Image:* %s`

const (
	msgEmptyValue = "-"
	msgNoImage    = "no file chosen"
)
