package chromedpexec

// Page-side primitives. Each snippet evaluates to a plain JSON-friendly
// value so the Go side never parses DOM structures.

const (
	pageStateOK          = "ok"
	pageStateNotFound    = "not-found"
	pageStateRateLimited = "rate-limited"
)

const jsPageState = `function pageState() {
	const text = document.body ? document.body.innerText : "";
	if (text.includes("Sorry, this page isn't available.")) {
		return "not-found";
	}
	if (text.includes("Please wait a few minutes before you try again.")) {
		return "rate-limited";
	}
	return "ok";
}
pageState();`

// jsClickFollow clicks the profile header follow button. Evaluates to true
// when a click happened, false when no follow button is present (already
// following or page not a profile).
const jsClickFollow = `function clickFollow() {
	const buttons = document.querySelectorAll('header button, main header button');
	for (const button of buttons) {
		const label = button.innerText.trim();
		if (label === 'Follow' || label === 'Follow Back') {
			button.click();
			return true;
		}
	}
	return false;
}
clickFollow();`

// jsOpenUnfollowDialog clicks the "Following"/"Requested" header button,
// which opens the confirmation dialog.
const jsOpenUnfollowDialog = `function openUnfollowDialog() {
	const buttons = document.querySelectorAll('header button, main header button');
	for (const button of buttons) {
		const label = button.innerText.trim();
		if (label === 'Following' || label === 'Requested') {
			button.click();
			return true;
		}
	}
	return false;
}
openUnfollowDialog();`

// jsConfirmUnfollow clicks the Unfollow entry inside the open dialog.
const jsConfirmUnfollow = `function confirmUnfollow() {
	const dialog = document.querySelector('div[role="dialog"]');
	if (!dialog) {
		return false;
	}
	const entries = dialog.querySelectorAll('button, div[role="button"]');
	for (const entry of entries) {
		if (entry.innerText.trim() === 'Unfollow') {
			entry.click();
			return true;
		}
	}
	return false;
}
confirmUnfollow();`

const jsIsFollowing = `function isFollowing() {
	const buttons = document.querySelectorAll('header button, main header button');
	for (const button of buttons) {
		const label = button.innerText.trim();
		if (label === 'Following' || label === 'Requested') {
			return true;
		}
	}
	return false;
}
isFollowing();`

const jsBlockedBanner = `function blockedBanner() {
	const text = document.body ? document.body.innerText : "";
	return text.includes('Action Blocked')
		|| text.includes('Try Again Later')
		|| text.includes('We restrict certain activity');
}
blockedBanner();`

// jsListMediaHrefs collects permalink hrefs from the profile grid in
// document order.
const jsListMediaHrefs = `function listMediaHrefs() {
	const anchors = document.querySelectorAll('main a[href*="/p/"], main a[href*="/reel/"]');
	const hrefs = [];
	for (const anchor of anchors) {
		hrefs.push(anchor.getAttribute('href'));
	}
	return hrefs;
}
listMediaHrefs();`

// jsMediaAttributes inspects the currently open media page. Evaluates to
// {kind, text, sourceRef}.
const jsMediaAttributes = `function mediaAttributes() {
	const scope = document.querySelector('article') || document;
	let kind = 'photo';
	if (scope.querySelector('video')) {
		kind = 'video';
	} else if (scope.querySelector('button[aria-label="Next"]')) {
		kind = 'carousel';
	}
	let text = '';
	const caption = scope.querySelector('h1');
	if (caption) {
		text = caption.innerText;
	}
	let sourceRef = '';
	const image = scope.querySelector('img[src]');
	if (kind === 'video') {
		const video = scope.querySelector('video[src]');
		if (video) {
			sourceRef = video.getAttribute('src');
		}
	} else if (image) {
		sourceRef = image.getAttribute('src');
	}
	return {kind: kind, text: text, sourceRef: sourceRef};
}
mediaAttributes();`

const jsIsMediaLiked = `function isMediaLiked() {
	const scope = document.querySelector('article') || document;
	return scope.querySelector('svg[aria-label="Unlike"]') !== null;
}
isMediaLiked();`

const jsClickLike = `function clickLike() {
	const scope = document.querySelector('article') || document;
	const icon = scope.querySelector('section svg[aria-label="Like"]') || scope.querySelector('svg[aria-label="Like"]');
	if (!icon) {
		return false;
	}
	const button = icon.closest('button') || icon.closest('div[role="button"]');
	if (!button) {
		return false;
	}
	button.click();
	return true;
}
clickLike();`

// jsDismissDialogs clicks away the post-login "Save Info" / "Turn on
// Notifications" prompts. Evaluates to the number of prompts dismissed.
const jsDismissDialogs = `function dismissDialogs() {
	let dismissed = 0;
	const buttons = document.querySelectorAll('button, div[role="button"]');
	for (const button of buttons) {
		const label = button.innerText.trim();
		if (label === 'Not Now' || label === 'Not now') {
			button.click();
			dismissed++;
		}
	}
	return dismissed;
}
dismissDialogs();`

const jsLoginErrorText = `function loginErrorText() {
	const slot = document.querySelector('#slfErrorAlert, p[data-testid="login-error-message"]');
	return slot ? slot.innerText : '';
}
loginErrorText();`

const jsIsLoggedIn = `function isLoggedIn() {
	return document.cookie.includes('sessionid=')
		|| document.querySelector('a[href*="/accounts/edit/"], svg[aria-label="Home"]') !== null;
}
isLoggedIn();`
