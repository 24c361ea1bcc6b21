package browser

// In-page extraction scripts. Each returns JSON.stringify of an array of
// raw items matching records.RawItem. Selectors track the site's rendered
// test IDs; extraction is best-effort and empty fields are fine.

const extractPostsJS = `() => {
	const items = [];
	const text = (root, sel) => {
		const el = root.querySelector(sel);
		return el ? el.textContent.trim() : '';
	};
	document.querySelectorAll('article[data-testid="tweet"]').forEach(card => {
		const item = {
			author: '', handle: '', text: '', url: '',
			likes: '', reposts: '', replies: ''
		};
		const name = card.querySelector('[data-testid="User-Name"]');
		if (name) {
			const spans = Array.from(name.querySelectorAll('span'))
				.map(s => s.textContent.trim()).filter(Boolean);
			item.author = spans.length ? spans[0] : '';
			const at = spans.find(s => s.startsWith('@'));
			if (at) item.handle = at;
		}
		item.text = text(card, '[data-testid="tweetText"]');
		const link = card.querySelector('a[href*="/status/"]');
		if (link) item.url = link.href;
		item.replies = text(card, '[data-testid="reply"]');
		item.reposts = text(card, '[data-testid="retweet"]');
		item.likes = text(card, '[data-testid="like"]');
		items.push(item);
	});
	return JSON.stringify(items);
}`

const extractProfileJS = `() => {
	const items = [];
	const text = (sel) => {
		const el = document.querySelector(sel);
		return el ? el.textContent.trim() : '';
	};
	const item = {
		author: '', handle: '', bio: '', url: location.href, followers: ''
	};
	const name = document.querySelector('[data-testid="UserName"]');
	if (name) {
		const spans = Array.from(name.querySelectorAll('span'))
			.map(s => s.textContent.trim()).filter(Boolean);
		item.author = spans.length ? spans[0] : '';
		const at = spans.find(s => s.startsWith('@'));
		if (at) item.handle = at;
	}
	item.bio = text('[data-testid="UserDescription"]');
	const followers = document.querySelector('a[href$="/verified_followers"] span');
	if (followers) item.followers = followers.textContent.trim();
	if (item.author || item.handle) items.push(item);
	return JSON.stringify(items);
}`

const extractPeopleJS = `() => {
	const items = [];
	document.querySelectorAll('button[data-testid="UserCell"], div[data-testid="UserCell"]').forEach(cell => {
		const item = { author: '', handle: '', bio: '', url: '' };
		const spans = Array.from(cell.querySelectorAll('span'))
			.map(s => s.textContent.trim()).filter(Boolean);
		item.author = spans.length ? spans[0] : '';
		const at = spans.find(s => s.startsWith('@'));
		if (at) item.handle = at;
		const link = cell.querySelector('a[href^="/"]');
		if (link) item.url = link.href;
		const dirs = cell.querySelectorAll('div[dir="auto"]');
		if (dirs.length) item.bio = dirs[dirs.length - 1].textContent.trim();
		items.push(item);
	});
	return JSON.stringify(items);
}`

// loggedOutJS inspects the DOM for the logged-out state: a login link
// present, or the primary timeline column absent.
const loggedOutJS = `() => {
	const loginLink = document.querySelector('a[href="/login"], a[href="/i/flow/login"]');
	const primary = document.querySelector('[data-testid="primaryColumn"]');
	return !!loginLink || !primary;
}`

const scrollHeightJS = `() => document.body.scrollHeight`

const scrollToBottomJS = `() => { window.scrollTo(0, document.body.scrollHeight); }`

const scrollStepJS = `() => { window.scrollBy(0, Math.floor(window.innerHeight * 0.8)); }`

// engageVisibleJS clicks the first like control currently in the viewport.
// Returns whether anything was clicked.
const engageVisibleJS = `() => {
	const buttons = Array.from(document.querySelectorAll('button[data-testid="like"]'));
	const visible = buttons.find(b => {
		const r = b.getBoundingClientRect();
		return r.top >= 0 && r.bottom <= window.innerHeight;
	});
	if (!visible) return false;
	visible.click();
	return true;
}`

// openItemJS clicks the first visible item permalink. Returns whether
// anything was clicked; the caller navigates back afterwards.
const openItemJS = `() => {
	const links = Array.from(document.querySelectorAll('article a[href*="/status/"]'));
	const visible = links.find(l => {
		const r = l.getBoundingClientRect();
		return r.top >= 0 && r.bottom <= window.innerHeight;
	});
	if (!visible) return false;
	visible.click();
	return true;
}`
