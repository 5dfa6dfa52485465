package stage_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/imamik/hostprep/internal/config"
	"github.com/imamik/hostprep/internal/remote"
	"github.com/imamik/hostprep/internal/remote/remotetest"
	"github.com/imamik/hostprep/internal/stage"
)

const (
	lsblkFree = `{"blockdevices": [
		{"name": "sda", "size": "30G", "type": "disk", "mountpoints": [null],
		 "children": [{"name": "sda1", "size": "30G", "type": "part", "mountpoints": ["/"]}]},
		{"name": "sdb", "size": "1T", "type": "disk", "mountpoints": [null]}
	]}`
	lsblkMounted = `{"blockdevices": [
		{"name": "sda", "size": "30G", "type": "disk", "mountpoints": [null],
		 "children": [{"name": "sda1", "size": "30G", "type": "part", "mountpoints": ["/"]}]},
		{"name": "sdb", "size": "1T", "type": "disk", "mountpoints": ["/data"]}
	]}`
	fstabWithSdb = "/dev/sdb       /data   ext4    defaults,nofail        0       0\n"
)

var _ = Describe("Dispatcher", func() {
	var (
		ctx  context.Context
		fake *remotetest.Fake
		d    *stage.Dispatcher
	)

	BeforeEach(func() {
		ctx = context.Background()
		fake = remotetest.New()
		d = stage.New(remote.NewExecutor(fake))
	})

	Context("with a mkdir stage", func() {
		var st *config.Stage

		BeforeEach(func() {
			st = &config.Stage{
				Name:  "folders",
				Mkdir: &config.MkdirOptions{Sudo: true, Perm: "0777", Folders: []string{"/data/a", "/data/b"}},
			}
		})

		It("creates all folders with one command and sets permissions over the same list", func() {
			results := d.Install(ctx, st)

			Expect(results).To(HaveLen(1))
			Expect(results[0].Err).NotTo(HaveOccurred())
			Expect(fake.Commands()).To(Equal([]string{
				"sudo mkdir -p /data/a /data/b",
				"sudo chmod -R 0777 /data/a /data/b",
			}))
		})

		It("probes each folder separately on check", func() {
			fake.On("ls -d /data/b", remotetest.Exit(2, ""))

			results := d.Check(ctx, st)

			Expect(results).To(HaveLen(1))
			Expect(fake.Commands()).To(Equal([]string{"ls -d /data/a", "ls -d /data/b"}))
			Expect(results[0].Status.Satisfied()).To(BeFalse())
			Expect(results[0].Status.Gaps()).To(ConsistOf("/data/b missing"))
		})
	})

	Context("with a mount stage", func() {
		var st *config.Stage

		BeforeEach(func() {
			st = &config.Stage{Name: "disk", Mount: &config.MountOptions{To: "/data"}}
		})

		It("formats, mounts and persists a free disk once", func() {
			fake.On("lsblk -J -b", remotetest.OK(lsblkFree)).
				On("cat /etc/fstab", remotetest.OK("")).
				OnContains("blkid", remotetest.Exit(2, ""))

			results := d.Install(ctx, st)

			Expect(results[0].Err).NotTo(HaveOccurred())
			Expect(fake.Count("mkfs -t ext4 /dev/sdb")).To(Equal(1))
			Expect(fake.Count("mount /dev/sdb /data")).To(Equal(1))
			Expect(fake.Count(">> /etc/fstab")).To(Equal(1))
		})

		It("is a no-op when the disk is already mounted and persisted", func() {
			fake.On("lsblk -J -b", remotetest.OK(lsblkMounted)).
				On("cat /etc/fstab", remotetest.OK(fstabWithSdb))

			for range 2 {
				fake.Reset()
				results := d.Install(ctx, st)
				Expect(results[0].Err).NotTo(HaveOccurred())
				Expect(fake.Commands()).To(Equal([]string{"lsblk -J -b", "cat /etc/fstab"}))
			}

			checked := d.Check(ctx, st)
			Expect(checked[0].Status.Satisfied()).To(BeTrue())
			Expect(checked[0].Status.Evidence()).To(Equal([]string{
				"folder /data is used by sdb",
				"device /dev/sdb is in fstab",
			}))
		})
	})
})
