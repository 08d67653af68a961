/*
File: dataset.go
Version: 1.1.0
Description: Built-in labeled URL corpus used to train the classifier when no persisted
             model exists, plus an optional on-disk corpus extension.
             UPDATED: Added LoadCorpusFile for "url,label" files.
*/

package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Labels used in the corpus.
const (
	LabelLegit    = 0
	LabelPhishing = 1
)

// Number of examples of each class that get an augmented copy.
const augmentCount = 10

// LabeledExample pairs a URL with its class (0 = legit, 1 = phishing).
type LabeledExample struct {
	URL   string
	Label int
}

var legitURLs = []string{
	"https://www.google.com/",
	"https://www.microsoft.com/en-us/",
	"https://www.apple.com/",
	"https://www.amazon.com/",
	"https://www.paypal.com/signin",
	"https://accounts.google.com/ServiceLogin",
	"https://www.wikipedia.org/",
	"https://developer.mozilla.org/en-US/",
	"https://www.npmjs.com/package/react",
	"https://github.com/",
	"https://docs.python.org/3/",
	"https://www.bankofamerica.com/",
	"https://www.hsbc.com/",
	"https://www.tesla.com/",
	"https://www.intuit.com/",
	"https://www.netflix.com/",
}

var phishingURLs = []string{
	"http://paypal.verify-login.secure-update.com/login",
	"http://update-account-amazon.com/secure/?id=12345",
	"http://apple-id.support-verify.com/login.php",
	"http://bankofamerica.com.secure-update.tk/verify",
	"http://192.168.1.10/confirm/credential.php",
	"http://secure-login-paypaI.com/",
	"http://google.com-support-login.top/verify",
	"http://microsoft-support-security.xyz/update",
	"http://secure.account-confirm.cf/login",
	"http://winner-free-gift.ga/claim?id=999",
	"http://verify-update-login.link/?a=1&b=2&c=3&d=4&e=5",
	"http://support-amaz0n.work/login",
	"http://limited-offer-prize.gq/free",
	"http://secure-update-bank.ml/auth",
	"http://confirm-appleid.click/",
	"http://support.apple.com.example.com.verify.ru/login",
	"https://docs.google.com/presentation/d/e/2PACX-1vTVj7OXwAUKJDv57jBmVg8eWFIUvTQ3c0-F1gPD_G5CwsQzOf3aelTqo4q42FIlqbHODnIlx2-Lx3Cf/pub?start=false&loop=false&delayms=3000&slide=id.p",
	"http://electrocoolhvacr.com/control/163/163xffrxxzzz.htm",
	"http://electrocoolhvacr.com/control/163/163xffrxxzzz.htm",
	"https://ersfilter-my.sharepoint.com/personal/nradonich_ersfilter_com/_layouts/15/WopiFrame.aspx?guestaccesstoken=6yWMLBQi9%2bSJfgzhADHvte2gYoWjf83IQBjRjehiK4s%3d&docid=1_135f7008dfbfa44e6b09dab0eb165b997&wdFormId=%7BE037F2D9%2D5DAA%2D4916%2DBA03%2DEB11D0AA6DEA%7D&action=formsubmit",
	"http://electrocoolhvacr.com/control/163/163xffrxxzzz.htm",
	"https://docs.google.com/presentation/d/e/2PACX-1vTVj7OXwAUKJDv57jBmVg8eWFIUvTQ3c0-F1gPD_G5CwsQzOf3aelTqo4q42FIlqbHODnIlx2-Lx3Cf/pub?start=false&loop=false&delayms=3000&slide=id.p",
	"https://btttelecommunniccatiion.weeblysite.com/",
	"https://kq0hgp.webwave.dev/",
	"https://brittishtele1bt-69836.getresponsesite.com/",
	"https://bt-internet-105056.weeblysite.com/",
	"https://teleej.weebly.com/",
	"https://maryleyshon.wixsite.com/my-site-1",
	"https://chamakhman.wixsite.com/my-site-4",
	"https://posts-ch.buzz/ch/",
	"https://tinyurl.com/bdfpfyur",
	"https://www.msaaezusshubsnsk.top",
	"https://www.msaaezusshubsnk.top",
	"https://www.msaaezuhubsnk.top",
	"https://docs.google.com/presentation/d/e/2PACX-1vSQhRfmHabALkn-AOLiTaZqD56SkYdFCKmKaqIrGG3EFFH6gZWKhJat2O1j5aFmxrSVAbYiXsWqB1_v/pub?start=false&loop=false&delayms=3000&slide=id.p",
	"https://docs.google.com/presentation/d/e/2PACX-1vSG51ZslCaXw4PrBW46kFU0Tlq4lYzrRyN40Lh_pEQ0ASpzDWxYjihI6-rcgu9U29weJY-0s_79Bk4T/pub?start=false&loop=false&delayms=3000&slide=id.p",
	"https://docs.google.com/presentation/d/e/2PACX-1vQdsu4PGmnYNi1qRHMH7GdUapyKZdxRSBr3lYwoHRGHj2wiu1nSWS5eGxC2N6jYJyQZpTrI1palx_2O/pub?start=false&loop=false&delayms=3000&slide=id.p",
	"https://us10.list-manage.com/survey?u=f5e2489ff9b1eb9c05b8e12b3&id=8b1b0686bc&e=",
	"https://loginaccountverifice392.square.site/",
	"https://tqwip3lbk5.onrocket.site/ch/index2.php",
	"https://pub-19aa984b0fb848bea6ffcc9634982332.r2.dev/email.upgrade.html#test@example.com",
	"https://10olixo.weeblysite.com/",
	"https://d-106596.weeblysite.com/",
	"https://managing55.wixsite.com/my-site",
	"https://www.aeombamk.co.nlgvsfig.com/",
	"https://postms.top/kUquEi/",
	"https://uteta.org/wp-includes/js/",
	"https://mysunrise-app-mip-appsuite.codeanyapp.com/wp-content/sunrise/index.html",
	"https://7q-4xu.cfd/ai/?oferta/zegarek-firmy-alkor-adriatica?navCategoryId=&amp;t=1711954905542",
	"https://ormpu.cn",
	"https://docs.google.com/presentation/d/e/2PACX-1vTVj7OXwAUKJDv57jBmVg8eWFIUvTQ3c0-F1gPD_G5CwsQzOf3aelTqo4q42FIlqbHODnIlx2-Lx3Cf/pub?start=false&loop=false&delayms=3000",
	"https://tinyurl.com/y6ed8sx8",
	"https://docs.google.com/presentation/d/e/2PACX-1vS60bmjSsSkqTqreCKIVQCxFGpZiDuIKqSdIWSVWB0Mf7c0y-b_Yqyj5AMD1FxrRDOYwEpVGc3RJ8fl/pub?start=false&loop=false&delayms=3000",
	"https://www.zrkhopdi.com",
	"https://docs.google.com/presentation/d/e/2PACX-1vRq9XcQhWixRbox-KPUbFd28GDEy9_VdF1xCZZIKJFoK2aRwtt9UneD690Ls0toNNYVF3YvIymt3YXW/pub?start=false&loop=false&delayms=3000",
	"https://docs.google.com/presentation/d/e/2PACX-1vR5JcFRJpccReGWw4DkwCuEhlEiPjChb3e9fp6MrccPIYNngjn1-NbPpKhrFKb6i_swBKlt3ZyF6Wt9/pub?start=false&loop=false&delayms=3000&slide=id.p",
	"https://us9.list-manage.com/survey?u=39b1647b88ecd5419f2f74923&id=3dabfe7ee8&e",
	"https://safeloggingin.com/voicemail.btlandline.com/?email=",
	"https://www.ligolesht-othole.youdontcare.com/",
	"https://www.duryorice-rime.acmetoy.com/",
	"https://www.quidjusck-just.serveuser.com/",
	"https://www.soturiund-ming.otzo.com/",
	"https://www.traompvel-book.ygto.com/",
	"https://www.haveable-busin.gettrials.com/",
	"https://www.kepolyeps-packin.ocry.com/",
	"https://www.inarcalud-dry.misecure.com/",
	"https://www.alsanshye-and.dsmtp.com/",
	"https://www.shioverp-youre.myddns.com/",
	"https://www.arerolght-wallet.ourhobby.com/",
	"https://www.mulastsic-your.americanunfinished.com/",
	"https://www.shapanye-discon.freeddns.com/",
}

// BuildDataset returns the built-in corpus: every legit URL, every phishing URL, then the
// augmented copies (phishing URLs padded with extra query parameters, legit URLs with a
// long path segment).
func BuildDataset() []LabeledExample {
	examples := make([]LabeledExample, 0, len(legitURLs)+len(phishingURLs)+2*augmentCount)

	for _, u := range legitURLs {
		examples = append(examples, LabeledExample{URL: u, Label: LabelLegit})
	}
	for _, u := range phishingURLs {
		examples = append(examples, LabeledExample{URL: u, Label: LabelPhishing})
	}

	extraParams := strings.Repeat("&extra=param", 5)
	for _, u := range phishingURLs[:min(augmentCount, len(phishingURLs))] {
		examples = append(examples, LabeledExample{URL: u + extraParams, Label: LabelPhishing})
	}

	longPath := "docs/" + strings.Repeat("a", 40)
	for _, u := range legitURLs[:min(augmentCount, len(legitURLs))] {
		examples = append(examples, LabeledExample{URL: u + longPath, Label: LabelLegit})
	}

	return examples
}

// LoadCorpusFile reads extra training examples from a "url,label" text file.
// Blank lines, '#' comments and a "url,label" header are skipped. The label is taken
// after the last comma so URLs may themselves contain commas.
func LoadCorpusFile(path string) ([]LabeledExample, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus %s: %w", path, err)
	}
	defer file.Close()

	var examples []LabeledExample
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if lineNo == 1 && strings.EqualFold(line, "url,label") {
			continue
		}

		idx := strings.LastIndex(line, ",")
		if idx <= 0 {
			return nil, fmt.Errorf("%s:%d: %w: expected url,label", path, lineNo, ErrInvalidCorpus)
		}

		url := strings.Trim(strings.TrimSpace(line[:idx]), "\"")
		label, err := strconv.Atoi(strings.TrimSpace(line[idx+1:]))
		if err != nil || (label != LabelLegit && label != LabelPhishing) {
			return nil, fmt.Errorf("%s:%d: %w: label must be 0 or 1", path, lineNo, ErrInvalidCorpus)
		}

		examples = append(examples, LabeledExample{URL: url, Label: label})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read corpus %s: %w", path, err)
	}
	if len(examples) == 0 {
		return nil, fmt.Errorf("%s: %w", path, errors.Join(ErrInvalidCorpus, ErrEmptyCorpus))
	}

	return examples, nil
}
